package main

import (
	"encoding/json"
	"net/http"

	"github.com/sushihentaime/blogcms/internal/storage"
	"github.com/sushihentaime/blogcms/internal/userservice"
)

func (app *application) showProfileHandler(w http.ResponseWriter, r *http.Request) {
	user := app.getUserContext(r)

	profile, err := app.userService.GetProfile(r.Context(), user.ID)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, profile, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// updateProfileHandler accepts JSON or a multipart form with a profile_picture file. Read-only
// fields of the profile representation are accepted and ignored.
func (app *application) updateProfileHandler(w http.ResponseWriter, r *http.Request) {
	user := app.getUserContext(r)

	var req userservice.UpdateProfileRequest

	if isMultipart(r) {
		file, err := app.parseMultipart(w, r, "profile_picture")
		if err != nil {
			app.badRequestErrorResponse(w, r, err)
			return
		}

		req.FirstName = formString(r, "first_name")
		req.LastName = formString(r, "last_name")
		req.Bio = formString(r, "bio")

		req.Avatar, err = app.saveUpload(file, storage.ProfilePicturesDir, "profile_picture")
		if err != nil {
			app.serviceErrorResponse(w, r, err)
			return
		}
	} else {
		var input struct {
			FirstName         *string         `json:"first_name"`
			LastName          *string         `json:"last_name"`
			Bio               *string         `json:"bio"`
			ID                json.RawMessage `json:"id"`
			Username          json.RawMessage `json:"username"`
			Email             json.RawMessage `json:"email"`
			AvatarURL         json.RawMessage `json:"avatar_url"`
			ProfilePictureURL json.RawMessage `json:"profile_picture_url"`
			PostCount         json.RawMessage `json:"post_count"`
			DateJoined        json.RawMessage `json:"date_joined"`
		}

		err := app.parseJSON(w, r, &input)
		if err != nil {
			app.badRequestErrorResponse(w, r, err)
			return
		}

		req.FirstName = input.FirstName
		req.LastName = input.LastName
		req.Bio = input.Bio
	}

	var previous *string
	if req.Avatar != nil {
		current, err := app.userService.GetProfile(r.Context(), user.ID)
		if err != nil {
			app.discardUpload(req.Avatar)
			app.serviceErrorResponse(w, r, err)
			return
		}
		previous = current.Avatar
	}

	profile, err := app.userService.UpdateProfile(r.Context(), user.ID, req)
	if err != nil {
		app.discardUpload(req.Avatar)
		app.serviceErrorResponse(w, r, err)
		return
	}

	app.discardUpload(previous)

	err = app.writeJSON(w, http.StatusOK, profile, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
