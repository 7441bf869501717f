package handlers

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"

	"secretsanta/internal/live"
	"secretsanta/internal/models"
	"secretsanta/internal/services"
	"secretsanta/internal/session"
	"secretsanta/internal/store"
)

// HTTPHandler holds the dependencies for the HTTP handlers.
type HTTPHandler struct {
	service   *services.ExchangeService
	hub       *live.Hub
	templates *template.Template
}

// NewHTTPHandler creates a new HTTPHandler.
func NewHTTPHandler(service *services.ExchangeService, hub *live.Hub, templates *template.Template) *HTTPHandler {
	return &HTTPHandler{
		service:   service,
		hub:       hub,
		templates: templates,
	}
}

// renderPage is a helper to perform a two-step template rendering.
// It first executes the content template into a buffer, then executes the main
// layout template, passing the rendered content as a variable.
func (h *HTTPHandler) renderPage(c *gin.Context, status int, pageData gin.H, contentTmpl string) {
	buf := new(bytes.Buffer)
	err := h.templates.ExecuteTemplate(buf, contentTmpl, pageData)
	if err != nil {
		logger.Infof("Error executing content template %s: %v", contentTmpl, err)
		c.String(http.StatusInternalServerError, "Template rendering error")
		return
	}

	pageData["PageContent"] = template.HTML(buf.String())

	c.Status(status)
	c.Header("Content-Type", "text/html; charset=utf-8")
	err = h.templates.ExecuteTemplate(c.Writer, "layout.html", pageData)
	if err != nil {
		logger.Infof("Error executing layout template: %v", err)
	}
}

// RegisterRoutes registers all the application routes.
func (h *HTTPHandler) RegisterRoutes(router *gin.Engine) {
	router.Use(h.IdentityMiddleware())

	router.GET("/", h.ShowIndex)
	router.POST("/login", h.Login)
	router.POST("/logout", h.Logout)
	router.GET("/api/event", h.GetEvent)
	router.GET("/api/users/exists", h.UserExists)
	router.GET("/ws", h.ServeWS)

	admin := router.Group("/admin", h.AdminMiddleware())
	admin.POST("/users/remove", h.RemoveUser)
	admin.POST("/draw", h.PerformDraw)
	admin.POST("/reset", h.ResetEvent)
	admin.GET("/participants.csv", h.ExportParticipantsCSV)
}

// ShowIndex renders the screen that matches the shared event and the
// remembered identity.
func (h *HTTPHandler) ShowIndex(c *gin.Context) {
	h.renderScreen(c, http.StatusOK, gin.H{})
}

// renderScreen loads the event and renders login, lobby or result. extra is
// merged into the page data (inline errors, form values).
func (h *HTTPHandler) renderScreen(c *gin.Context, status int, extra gin.H) {
	ev, err := h.service.Event(c.Request.Context())
	if err != nil {
		h.renderStoreError(c, err)
		return
	}

	id := identity(c)
	screen := session.Derive(ev, id, session.ScreenLogin)
	data := gin.H{
		"Identity":     id,
		"IsAdmin":      h.service.IsAdministrator(id),
		"Screen":       string(screen),
		"Participants": ev.Public().Participants,
	}
	for k, v := range extra {
		data[k] = v
	}

	switch screen {
	case session.ScreenLogin:
		data["title"] = "Gift Exchange"
		h.renderPage(c, status, data, "login.html")
	case session.ScreenLobby:
		data["title"] = "Lobby"
		data["CanDraw"] = len(ev.Users) >= 2
		h.renderPage(c, status, data, "lobby.html")
	case session.ScreenResult:
		data["title"] = "Your Assignment"
		if receiver, ok := services.GetAssignment(ev, id); ok {
			data["Receiver"] = receiver
			data["Hint"] = h.service.Hint(c.Request.Context(), receiver)
		}
		h.renderPage(c, status, data, "result.html")
	}
}

func (h *HTTPHandler) renderStoreError(c *gin.Context, err error) {
	if store.IsNotProvisioned(err) {
		logger.Infof("Event store is not provisioned: %v", err)
		h.renderPage(c, http.StatusServiceUnavailable, gin.H{"title": "Setup needed"}, "setup_needed.html")
		return
	}
	logger.Infof("Error loading event: %v", err)
	h.renderPage(c, http.StatusServiceUnavailable, gin.H{
		"title":           "Connection error",
		"ConnectionError": err.Error(),
	}, "unavailable.html")
}

// Login handles the combined register-or-login form.
func (h *HTTPHandler) Login(c *gin.Context) {
	name := strings.TrimSpace(c.PostForm("name"))
	password := strings.TrimSpace(c.PostForm("password"))
	form := gin.H{"Name": name}

	if name == "" || password == "" {
		form["Error"] = "Name and password are required."
		h.renderScreen(c, http.StatusBadRequest, form)
		return
	}

	normalized := services.NormalizeName(name)
	result := h.service.RegisterOrLogin(c.Request.Context(), name, password)
	switch result {
	case services.LoginSuccess:
		cookieSlot{c}.Save(normalized)
		c.Redirect(http.StatusSeeOther, "/")
		return
	case services.LoginWrongPassword:
		if h.service.IsAdministrator(normalized) {
			form["Error"] = "Wrong administrator password."
		} else {
			form["Error"] = "That name is already taken and the password does not match."
		}
		h.renderScreen(c, http.StatusUnauthorized, form)
	case services.LoginGameClosed:
		form["Error"] = "The draw has already started; new registrations are closed."
		h.renderScreen(c, http.StatusConflict, form)
	case services.LoginInProgress:
		form["Error"] = "Your registration is already being processed."
		h.renderScreen(c, http.StatusConflict, form)
	case services.LoginInvalid:
		form["Error"] = "Name and password are required."
		h.renderScreen(c, http.StatusBadRequest, form)
	default:
		form["Error"] = "Connection error. Please try again."
		h.renderScreen(c, http.StatusServiceUnavailable, form)
	}
}

// Logout forgets the identity of this browser session.
func (h *HTTPHandler) Logout(c *gin.Context) {
	cookieSlot{c}.Clear()
	c.Redirect(http.StatusSeeOther, "/")
}

// RemoveUser handles the administrator removing a participant.
func (h *HTTPHandler) RemoveUser(c *gin.Context) {
	name := c.PostForm("name")
	if c.PostForm("confirm") != "yes" {
		h.renderScreen(c, http.StatusBadRequest, gin.H{"Alert": "Removal was not confirmed."})
		return
	}
	if strings.TrimSpace(name) == "" {
		h.renderScreen(c, http.StatusBadRequest, gin.H{"Alert": "Choose a participant to remove."})
		return
	}
	if services.NormalizeName(name) == identity(c) {
		h.renderScreen(c, http.StatusBadRequest, gin.H{"Alert": "You cannot remove yourself."})
		return
	}

	if err := h.service.RemoveUser(c.Request.Context(), name); err != nil {
		logger.Infof("Error removing user %q: %v", name, err)
		status := http.StatusServiceUnavailable
		if errors.Is(err, services.ErrActionInProgress) {
			status = http.StatusConflict
		}
		h.renderScreen(c, status, gin.H{"Alert": fmt.Sprintf("Could not remove %s. Please try again.", name)})
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// PerformDraw handles the request to draw the assignments for everybody.
func (h *HTTPHandler) PerformDraw(c *gin.Context) {
	if c.PostForm("confirm") != "yes" {
		h.renderScreen(c, http.StatusBadRequest, gin.H{"Error": "The draw was not confirmed."})
		return
	}

	_, err := h.service.PerformDraw(c.Request.Context())
	switch {
	case err == nil:
		c.Redirect(http.StatusSeeOther, "/")
	case errors.Is(err, services.ErrNotEnoughParticipants):
		h.renderScreen(c, http.StatusBadRequest, gin.H{"Error": "At least 2 people are needed for the draw."})
	case errors.Is(err, services.ErrActionInProgress):
		h.renderScreen(c, http.StatusConflict, gin.H{"Error": "The draw is already running."})
	default:
		logger.Infof("Error performing draw: %v", err)
		h.renderScreen(c, http.StatusServiceUnavailable, gin.H{"Error": "Connection error. Please try again."})
	}
}

// ResetEvent wipes every participant and assignment, then logs the
// administrator out.
func (h *HTTPHandler) ResetEvent(c *gin.Context) {
	if c.PostForm("confirm") != "yes" {
		h.renderScreen(c, http.StatusBadRequest, gin.H{"Alert": "Reset was not confirmed."})
		return
	}
	if err := h.service.ResetEvent(c.Request.Context()); err != nil {
		logger.Infof("Error resetting event: %v", err)
		h.renderScreen(c, http.StatusServiceUnavailable, gin.H{"Alert": "Could not reset the event. Please try again."})
		return
	}
	cookieSlot{c}.Clear()
	c.Redirect(http.StatusSeeOther, "/")
}

type eventResponse struct {
	Event    models.PublicEvent `json:"event"`
	Screen   session.Screen     `json:"screen"`
	Identity string             `json:"identity,omitempty"`
	IsAdmin  bool               `json:"isAdmin"`
	Receiver string             `json:"receiver,omitempty"`
}

// GetEvent returns the public event and the caller's own view of it.
func (h *HTTPHandler) GetEvent(c *gin.Context) {
	ev, err := h.service.Event(c.Request.Context())
	if err != nil {
		logger.Infof("Error loading event: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":       err.Error(),
			"setupNeeded": store.IsNotProvisioned(err),
		})
		return
	}
	id := identity(c)
	resp := eventResponse{
		Event:    ev.Public(),
		Screen:   session.Derive(ev, id, session.ScreenLogin),
		Identity: id,
		IsAdmin:  h.service.IsAdministrator(id),
	}
	if id != "" {
		resp.Receiver, _ = services.GetAssignment(ev, id)
	}
	c.JSON(http.StatusOK, resp)
}

// UserExists tells the login form whether the typed name would log in or
// register.
func (h *HTTPHandler) UserExists(c *gin.Context) {
	exists, err := h.service.UserExists(c.Request.Context(), c.Query("name"))
	if err != nil {
		logger.Infof("Error checking user: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"exists": exists})
}

// ServeWS attaches a websocket client to the live feed.
func (h *HTTPHandler) ServeWS(c *gin.Context) {
	h.hub.ServeWS(c.Writer, c.Request)
}

// ExportParticipantsCSV handles the request to download the participant list.
func (h *HTTPHandler) ExportParticipantsCSV(c *gin.Context) {
	ev, err := h.service.Event(c.Request.Context())
	if err != nil {
		logger.Infof("Error loading event: %v", err)
		c.String(http.StatusServiceUnavailable, "Error loading participants")
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment;filename=participants.csv")

	// Add BOM to ensure UTF-8 compatibility in Excel
	c.Writer.Write([]byte("\xef\xbb\xbf"))

	w := csv.NewWriter(c.Writer)

	if err := w.Write([]string{"#", "Name"}); err != nil {
		logger.Infof("Error writing CSV header: %v", err)
		return
	}
	for i, p := range ev.Public().Participants {
		if err := w.Write([]string{strconv.Itoa(i + 1), p.Name}); err != nil {
			logger.Infof("Error writing CSV row: %v", err)
			return
		}
	}

	w.Flush()

	if err := w.Error(); err != nil {
		logger.Infof("Error flushing CSV writer: %v", err)
	}
}
