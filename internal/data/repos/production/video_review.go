package production

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/eduvideo-backend/internal/domain"
	"github.com/yungbote/eduvideo-backend/internal/platform/dbctx"
	"github.com/yungbote/eduvideo-backend/internal/platform/logger"
)

// VideoReviewRepo is append-only: there is no update or delete.
type VideoReviewRepo interface {
	Create(dbc dbctx.Context, review *types.VideoReview) error
	ListByVideo(dbc dbctx.Context, videoID uuid.UUID) ([]*types.VideoReview, error)
}

type videoReviewRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVideoReviewRepo(db *gorm.DB, baseLog *logger.Logger) VideoReviewRepo {
	return &videoReviewRepo{db: db, log: baseLog.With("repo", "VideoReviewRepo")}
}

func (r *videoReviewRepo) Create(dbc dbctx.Context, review *types.VideoReview) error {
	if review.ID == uuid.Nil {
		review.ID = uuid.New()
	}
	return dbc.DB(r.db).Create(review).Error
}

func (r *videoReviewRepo) ListByVideo(dbc dbctx.Context, videoID uuid.UUID) ([]*types.VideoReview, error) {
	var out []*types.VideoReview
	err := dbc.DB(r.db).
		Where("video_id = ?", videoID).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}
