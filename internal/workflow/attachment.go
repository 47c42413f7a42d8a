package workflow

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"AlsitoQC/pkg/errors"
	"AlsitoQC/pkg/storage"
)

// AttachImage uploads an image for the draft and records its URL. The
// upload runs without the lock; if the draft was discarded meanwhile the
// object is removed again.
func (w *Workflow) AttachImage(ctx context.Context, store storage.Store, filename string, r io.Reader, size int64, contentType string) (string, error) {
	var epoch uint64
	err := w.update(func() error {
		if err := w.require("AttachImage", EnteringLocation, ConfirmingSubmission); err != nil {
			return err
		}
		epoch = w.epoch
		return nil
	})
	if err != nil {
		return "", err
	}

	key := "reports/" + uuid.NewString() + strings.ToLower(path.Ext(filename))
	if err := store.Write(ctx, key, r, size, contentType); err != nil {
		w.logger.Warn("attachment upload failed", zap.String("key", key), zap.Error(err))
		return "", errors.Wrap(err, "upload attachment")
	}
	url := store.PublicURL(key)

	err = w.update(func() error {
		if w.epoch != epoch || w.draft == nil {
			return w.invalid("AttachImage")
		}
		w.draft.ImageAttached = true
		w.draft.ImageURL = url
		return nil
	})
	if err != nil {
		if derr := store.Delete(ctx, key); derr != nil {
			w.logger.Warn("remove orphaned attachment failed", zap.String("key", key), zap.Error(derr))
		}
		return "", err
	}
	return url, nil
}
