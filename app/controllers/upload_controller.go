package controllers

import (
	"errors"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/teastall/teastall/pkg/ctx"
	"github.com/teastall/teastall/pkg/logger"
	"github.com/teastall/teastall/pkg/storage"
)

// MaxUploadBytes caps a single uploaded file.
const MaxUploadBytes = 8 << 20

var allowedUploadTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"video/mp4":  ".mp4",
}

type UploadController struct {
	disk storage.Disk
}

func NewUploadController(disk storage.Disk) *UploadController {
	return &UploadController{disk: disk}
}

// Store saves the multipart "file" field and returns its public URL.
// POST /api/uploads
func (uc *UploadController) Store(c *ctx.Context) {
	c.R.Body = http.MaxBytesReader(c.W, c.R.Body, MaxUploadBytes)
	file, header, err := c.R.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			c.Error(http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		c.ValidationError(map[string]string{"file": "The file field is required."})
		return
	}
	defer file.Close()

	// Sniff rather than trust the client's Content-Type.
	head := make([]byte, 512)
	n, _ := file.Read(head)
	contentType := http.DetectContentType(head[:n])
	ext, ok := allowedUploadTypes[contentType]
	if !ok {
		c.ValidationError(map[string]string{"file": "The file must be an image or mp4 video."})
		return
	}
	if _, err := file.Seek(0, 0); err != nil {
		fail(c, err)
		return
	}
	if e := strings.ToLower(path.Ext(header.Filename)); e == ".jpeg" && ext == ".jpg" {
		ext = e
	}

	key := "uploads/" + uuid.NewString() + ext
	if err := uc.disk.Put(c.Context(), key, file, contentType); err != nil {
		fail(c, err)
		return
	}
	logger.WithCtx(c.Context()).Info("file uploaded", "path", key, "bytes", header.Size)
	c.Created(map[string]string{"url": uc.disk.URL(key), "path": key})
}
