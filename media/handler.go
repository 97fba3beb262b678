package media

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/irsalhamdi/course-platform/api/web"
	"github.com/irsalhamdi/course-platform/api/weberr"
)

// maxUploadSize bounds the in-memory part of multipart parsing. Bigger
// files spill to disk.
const maxUploadSize = 32 << 20

// HandleUpload receives a multipart file and stores it on the media
// provider. The resource_type query selects between image and video
// processing, defaulting to image. Responds with the served URL.
func HandleUpload(up *Uploader) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			return weberr.NewError(fmt.Errorf("parsing multipart form: %w", err), "invalid upload request", http.StatusBadRequest)
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			return weberr.NewError(fmt.Errorf("reading form file: %w", err), "file is required", http.StatusBadRequest)
		}
		defer file.Close()

		rt := web.QueryParam(r, "resource_type")
		switch rt {
		case "":
			rt = "image"
		case "image", "video":
		default:
			return weberr.BadRequest(errors.New("resource_type must be either image or video"))
		}

		url, err := up.Upload(ctx, file, header.Filename, rt)
		if err != nil {
			// Provider failures carry account details: log the cause,
			// return a neutral message.
			return fmt.Errorf("storing media file: %w", err)
		}

		return web.Respond(ctx, w, url, http.StatusCreated)
	}
}
