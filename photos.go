package harvestbook

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// signPhoto attaches a fresh signed access URL for the photo bytes.
func (a *App) signPhoto(p Photo) Photo {
	if p.ObjectKey != "" {
		p.URL = a.blobs.SignedURL(a.cfg.SiteURL, p.ObjectKey, a.cfg.MediaURLTTL)
	}
	return p
}

func (a *App) handleListEventPhotos(c echo.Context) error {
	eventID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	photoType := PhotoType(c.QueryParam("type"))
	if photoType != "" && !photoType.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "type must be individual or page")
	}
	if _, err := a.store.GetEvent(eventID); err != nil {
		return err
	}
	photos, err := a.store.ListEventPhotos(eventID, photoType)
	if err != nil {
		return err
	}
	for i := range photos {
		photos[i] = a.signPhoto(photos[i])
	}
	return c.JSON(http.StatusOK, photos)
}

// handleUploadPhoto accepts a multipart upload ("photo" file field plus
// caption and photo_type values), resizes and re-encodes the image, stores
// the bytes in the blob store and the metadata row in SQLite.
func (a *App) handleUploadPhoto(c echo.Context) error {
	eventID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	user, _ := currentUser(c)

	photoType := PhotoType(c.FormValue("photo_type"))
	if photoType == "" {
		photoType = PhotoIndividual
	}
	if !photoType.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "photo_type must be individual or page")
	}

	file, err := c.FormFile("photo")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "photo file is required")
	}
	if file.Size > a.cfg.MaxUploadBytes {
		return echo.NewHTTPError(http.StatusBadRequest, "photo file is too large")
	}
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	width, height, data, err := processImage(src)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "photo could not be decoded")
	}
	key, err := a.blobs.Put(data, ".jpg")
	if err != nil {
		return err
	}

	photo, err := a.store.CreatePhoto(Photo{
		EventID:    eventID,
		Filename:   file.Filename,
		Caption:    c.FormValue("caption"),
		Type:       photoType,
		ObjectKey:  key,
		Width:      width,
		Height:     height,
		Size:       len(data),
		UploadedBy: &user.ID,
	})
	if err != nil {
		// Orphaned blob if the row insert fails; clean it up.
		if delErr := a.blobs.Delete(key); delErr != nil {
			c.Logger().Warnf("delete orphaned blob %s: %v", key, delErr)
		}
		if isForeignKeyViolation(err) {
			return echo.NewHTTPError(http.StatusNotFound, "event not found")
		}
		return err
	}
	return c.JSON(http.StatusCreated, a.signPhoto(photo))
}

func (a *App) handleGetPhoto(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	photo, err := a.store.GetPhoto(id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a.signPhoto(photo))
}

type photoUpdateRequest struct {
	Caption   string    `json:"caption"`
	PhotoType PhotoType `json:"photo_type"`
}

func (a *App) handleUpdatePhoto(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	photo, err := a.store.GetPhoto(id)
	if err != nil {
		return err
	}
	req := photoUpdateRequest{Caption: photo.Caption, PhotoType: photo.Type}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if !req.PhotoType.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "photo_type must be individual or page")
	}
	if err := a.store.UpdatePhoto(id, req.Caption, req.PhotoType); err != nil {
		return err
	}
	photo.Caption = req.Caption
	photo.Type = req.PhotoType
	return c.JSON(http.StatusOK, a.signPhoto(photo))
}

type photoTypeRequest struct {
	PhotoType PhotoType `json:"photo_type"`
}

// handleSetPhotoType reclassifies a photo. Anything but individual/page is
// rejected before the write, leaving the stored type unchanged.
func (a *App) handleSetPhotoType(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req photoTypeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if !req.PhotoType.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "photo_type must be individual or page")
	}
	if err := a.store.UpdatePhotoType(id, req.PhotoType); err != nil {
		return err
	}
	photo, err := a.store.GetPhoto(id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a.signPhoto(photo))
}

func (a *App) handleDeletePhoto(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	photo, err := a.store.GetPhoto(id)
	if err != nil {
		return err
	}
	if err := a.store.DeletePhoto(id); err != nil {
		return err
	}
	if err := a.blobs.Delete(photo.ObjectKey); err != nil {
		c.Logger().Warnf("delete blob %s for photo %d: %v", photo.ObjectKey, id, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// handleMedia serves blob bytes. Access requires a valid, unexpired
// signature; there are no durable public media links.
func (a *App) handleMedia(c echo.Context) error {
	key := c.Param("key")
	if !a.blobs.Verify(key, c.QueryParam("exp"), c.QueryParam("sig")) {
		return echo.NewHTTPError(http.StatusForbidden, "invalid or expired signature")
	}
	path, err := a.blobs.Path(key)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid media key")
	}
	return c.File(path)
}
