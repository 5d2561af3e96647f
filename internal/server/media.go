package server

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/scribechat/scribechat/internal/store"
	"github.com/scribechat/scribechat/models"
)

// MediaHandler exposes the media catalog and the conversation archive so
// clients can populate the media-scope selector and show history.
type MediaHandler struct {
	Store *store.Store
}

func (m *MediaHandler) Register(g *echo.Group) {
	g.GET("/media", m.listMedia)
	g.GET("/turns", m.listTurns)
}

func (m *MediaHandler) listMedia(c echo.Context) error {
	userID, _ := c.Get("user_id").(string)
	items, err := m.Store.ListMedia(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []models.MediaItem{}
	}
	return c.JSON(http.StatusOK, items)
}

func (m *MediaHandler) listTurns(c echo.Context) error {
	userID, _ := c.Get("user_id").(string)
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	turns, err := m.Store.ListTurns(c.Request().Context(), userID, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if turns == nil {
		turns = []models.ArchivedTurn{}
	}
	return c.JSON(http.StatusOK, turns)
}
