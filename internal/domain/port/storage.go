package port

import (
	"context"
	"io"

	"github.com/stepwise/stepwise-processing-service/internal/domain/entity"
)

type VideoStorage interface {
	DownloadObject(ctx context.Context, bucket, objectKey, destPath string) error
	UploadVideo(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) (string, error)
}

type ArchiveStorage interface {
	UploadArchive(ctx context.Context, objectKey string, reader io.Reader, size int64) error
}

// KeyframeStore turns an encoded keyframe into the image reference of a step.
type KeyframeStore interface {
	StoreKeyframe(ctx context.Context, guideID, order int, frame *entity.EncodedFrame) (string, error)
}

// KeyframeSigner renews time-limited keyframe URLs stored with a guide.
type KeyframeSigner interface {
	RefreshKeyframeURL(ctx context.Context, imageURL string) (string, error)
}
