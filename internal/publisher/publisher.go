package publisher

import (
	"context"
	"errors"

	"wisefido-hrm/internal/models"
)

// ReadingPublisher 将解码后的读数发布给展示/记录端
type ReadingPublisher interface {
	PublishReading(ctx context.Context, event *models.ReadingEvent) error
}

// MultiPublisher 依次发布到多个目标，单个失败不影响其他目标
type MultiPublisher []ReadingPublisher

func (m MultiPublisher) PublishReading(ctx context.Context, event *models.ReadingEvent) error {
	var errs []error
	for _, p := range m {
		if err := p.PublishReading(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
