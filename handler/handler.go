package handler

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"shorts-worker/dto"
	"shorts-worker/service"
)

type ServiceDependencies struct {
	Downloads *service.Downloads
	Shorts    *service.Shorts
}

// ShortsRequestHandler consumes one shorts.request message: it starts
// the source download and registers the job referencing it. Both run in
// the background; the message is done once they are registered.
func ShortsRequestHandler(ctx context.Context, msg amqp.Delivery, deps ServiceDependencies) error {
	var req dto.ShortsRequestMessage
	if err := json.Unmarshal(msg.Body, &req); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to unmarshal shorts request message")
		return err
	}

	download, err := deps.Downloads.Start(req.VideoID, req.SessionID)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("video_id", req.VideoID).Msg("failed to start download")
		return err
	}

	job, err := deps.Shorts.Start(download.ID, req.SessionID, req.Clip)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("download_id", download.ID).Msg("failed to start job")
		return err
	}

	zerolog.Ctx(ctx).Info().
		Str("job_id", job.ID).
		Str("download_id", download.ID).
		Str("video_id", req.VideoID).
		Msg("received shorts request")

	return nil
}
