package uploads

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"memeverse/core"
	"memeverse/middleware"
	"memeverse/state"

	"github.com/go-chi/render"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// maxUploadSize caps the multipart form held in memory.
const maxUploadSize = 10 << 20

// Uploader pushes the raw image somewhere public and returns its URL.
type Uploader interface {
	Upload(ctx context.Context, filename string, image io.Reader) (string, error)
}

// Captioner suggests a caption for an uploaded image.
type Captioner interface {
	GenerateCaption(ctx context.Context, imageURL string) (string, error)
}

// HandleCreate accepts a multipart image upload, hosts the image, builds
// the meme record and prepends it to the user-owned collection. Form
// fields: "image" (the file), "name", "category", "author" and an optional
// "generateCaption" flag that fills an empty name with a suggestion.
func HandleCreate(st *state.Store, uploader Uploader, captioner Captioner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Invalid multipart form"})
			return
		}

		file, header, err := r.FormFile("image")
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "An image file is required"})
			return
		}
		defer file.Close()

		url, err := uploader.Upload(r.Context(), header.Filename, file)
		if err != nil {
			logrus.WithError(err).WithField("filename", header.Filename).Error("Failed to host uploaded image")
			render.Status(r, http.StatusBadGateway)
			render.JSON(w, r, map[string]string{"error": "Failed to host uploaded image"})
			return
		}

		name := strings.TrimSpace(r.FormValue("name"))
		if name == "" && r.FormValue("generateCaption") == "true" && captioner != nil {
			if suggestion, err := captioner.GenerateCaption(r.Context(), url); err == nil {
				name = suggestion
			}
		}
		if name == "" {
			name = header.Filename
		}

		category := r.FormValue("category")
		if category == "" {
			category = core.CategoryNew
		}

		author := r.FormValue("author")
		if claims := middleware.ClaimsFrom(r.Context()); claims != nil {
			author = claims.Login
		}

		meme := core.Meme{
			ID:        ulid.Make().String(),
			Name:      name,
			URL:       url,
			Category:  category,
			Author:    author,
			Comments:  []core.Comment{},
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
		}
		st.AddUserMeme(meme)

		logrus.WithFields(logrus.Fields{
			"meme_id": meme.ID,
			"name":    meme.Name,
		}).Info("User meme created")

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, meme)
	}
}
