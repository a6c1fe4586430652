package profile

import (
	"encoding/json"
	"net/http"
	"strings"

	"memeverse/core"
	"memeverse/middleware"

	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

// HandleGet returns the persisted profile, or the default one when nothing
// has been saved yet.
func HandleGet(prefs core.PreferenceStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, load(r, prefs))
	}
}

// HandleUpdate merges the request body into the stored profile and writes
// it back. Fields absent from the body keep their current values.
func HandleUpdate(prefs core.PreferenceStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profile := load(r, prefs)

		// Decoding over the loaded value gives merge semantics: only the
		// fields present in the body are replaced.
		if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Invalid JSON in request body"})
			return
		}
		if strings.TrimSpace(profile.Name) == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Profile name must not be empty"})
			return
		}

		data, err := json.Marshal(profile)
		if err != nil {
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to encode profile"})
			return
		}
		if err := prefs.Set(r.Context(), core.UserProfileKey, string(data)); err != nil {
			logrus.WithError(err).Error("Failed to persist profile")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to persist profile"})
			return
		}

		render.JSON(w, r, profile)
	}
}

// HandleMe returns the authenticated identity. Mount behind RequireAuth.
func HandleMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := middleware.ClaimsFrom(r.Context())
		if claims == nil {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"error": "User claims not found"})
			return
		}
		render.JSON(w, r, core.User{
			Subject:   claims.Subject,
			Login:     claims.Login,
			Email:     claims.Email,
			AvatarURL: claims.AvatarURL,
			Name:      claims.Name,
		})
	}
}

func load(r *http.Request, prefs core.PreferenceStore) core.Profile {
	raw, err := prefs.Get(r.Context(), core.UserProfileKey)
	if err != nil {
		return core.DefaultProfile()
	}

	var profile core.Profile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		logrus.WithError(err).Warn("Persisted profile is corrupt, using default")
		return core.DefaultProfile()
	}
	return profile
}
