package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/eduvideo-backend/internal/domain"
)

func SeedEducation(tb testing.TB, ctx context.Context, tx *gorm.DB, passScore *int) *types.Education {
	tb.Helper()
	e := &types.Education{ID: uuid.New(), Title: "Forklift safety", PassScore: passScore}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed education: %v", err)
	}
	return e
}

// SeedVideo inserts a video directly in the given status, bypassing the review graph.
func SeedVideo(tb testing.TB, ctx context.Context, tx *gorm.DB, educationID uuid.UUID, status types.VideoStatus) *types.Video {
	tb.Helper()
	v := &types.Video{
		ID:          uuid.New(),
		EducationID: educationID,
		Title:       "Lesson",
		Version:     1,
		Status:      status,
		CreatorUUID: uuid.New(),
	}
	if err := tx.WithContext(ctx).Create(v).Error; err != nil {
		tb.Fatalf("seed video: %v", err)
	}
	return v
}

func SeedJob(tb testing.TB, ctx context.Context, tx *gorm.DB, video *types.Video, status types.JobStatus) *types.VideoGenerationJob {
	tb.Helper()
	j := &types.VideoGenerationJob{
		ID:            uuid.New(),
		EducationID:   video.EducationID,
		VideoID:       video.ID,
		ScriptID:      uuid.New(),
		ScriptVersion: 1,
		RequestID:     uuid.New(),
		Status:        status,
	}
	if err := tx.WithContext(ctx).Create(j).Error; err != nil {
		tb.Fatalf("seed job: %v", err)
	}
	return j
}
