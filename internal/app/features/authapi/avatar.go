// internal/app/features/authapi/avatar.go
package authapi

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/image/draw"

	userstore "github.com/dalemusser/ghostwire/internal/app/store/users"
	"github.com/dalemusser/ghostwire/internal/app/system/auth"
	"github.com/dalemusser/ghostwire/internal/app/system/httpjson"
	"github.com/dalemusser/ghostwire/internal/app/system/timeouts"
)

const (
	maxAvatarUpload = 5 << 20 // 5 MiB
	avatarSize      = 256
	avatarThumbSize = 64
)

// HandleAvatarUpload accepts a multipart image, scales it to the standard
// avatar size plus a thumbnail, stores both as PNG, and records the public
// URL on the profile. Re-uploading overwrites the previous files, so the
// URL stays stable per user.
func (h *Handler) HandleAvatarUpload(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentUser(r)

	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarUpload)
	if err := r.ParseMultipartForm(maxAvatarUpload); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "upload too large or malformed")
		return
	}
	file, _, err := r.FormFile("avatar")
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, `missing "avatar" file field`)
		return
	}
	defer file.Close()

	src, _, err := image.Decode(file)
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, "file is not a supported image")
		return
	}

	if err := os.MkdirAll(h.AvatarDir, 0o755); err != nil {
		h.Log.Error("avatar dir create failed", zap.String("dir", h.AvatarDir), zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not store avatar")
		return
	}

	name := id.ID + ".png"
	thumbName := id.ID + "_64.png"
	if err := writeScaled(src, filepath.Join(h.AvatarDir, name), avatarSize); err != nil {
		h.Log.Error("avatar write failed", zap.String("user_id", id.ID), zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not store avatar")
		return
	}
	if err := writeScaled(src, filepath.Join(h.AvatarDir, thumbName), avatarThumbSize); err != nil {
		h.Log.Error("avatar thumb write failed", zap.String("user_id", id.ID), zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not store avatar")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	url := h.AvatarURL + "/" + name
	user, err := userstore.New(h.DB).UpdateProfile(ctx, id.ID, userstore.ProfileUpdate{
		AvatarURL: &url,
	})
	if err != nil {
		h.Log.Error("avatar url update failed", zap.String("user_id", id.ID), zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not store avatar")
		return
	}

	h.Log.Info("avatar updated", zap.String("user_id", id.ID), zap.String("url", url))
	httpjson.Write(w, http.StatusOK, user.ToProfile())
}

// writeScaled fits the image into a size x size square, preserving aspect
// ratio, and writes it as PNG.
func writeScaled(src image.Image, path string, size int) error {
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return fmt.Errorf("empty image")
	}

	outW, outH := size, size
	if width > height {
		outH = height * size / width
	} else if height > width {
		outW = width * size / height
	}
	if outW < 1 {
		outW = 1
	}
	if outH < 1 {
		outH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, outW, outH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	return png.Encode(out, dst)
}
