package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"convo-chat/internal/services"
	"convo-chat/internal/transport/httpdto"
	convo_errors "convo-chat/pkg/errors"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	service *services.UserService
}

func NewUserHandler(service *services.UserService) *UserHandler {
	return &UserHandler{service: service}
}

func (h *UserHandler) CheckUser(c *gin.Context) {
	var req httpdto.CheckUserRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Email == "" {
		c.JSON(http.StatusOK, httpdto.NewStatusResponse("Email is required", false))
		return
	}

	u, err := h.service.GetByEmail(c.Request.Context(), req.Email)
	if errors.Is(err, convo_errors.ErrNotFound) {
		c.JSON(http.StatusOK, httpdto.NewStatusResponse("User not found", false))
		return
	}
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, httpdto.StatusResponse{Msg: "User Found", Status: true, Data: u})
}

func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewStatusResponse("Invalid user id", false))
		return
	}

	err = h.service.Delete(c.Request.Context(), id)
	if errors.Is(err, convo_errors.ErrNotFound) {
		c.JSON(http.StatusNotFound, httpdto.NewStatusResponse("User not found", false))
		return
	}
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewStatusResponse("User deleted successfully", true))
}

func (h *UserHandler) AddUser(c *gin.Context) {
	var req httpdto.AddUserRequest
	if !bindJSON(c, &req) {
		return
	}

	u, err := h.service.Create(c.Request.Context(), services.NewUserInput{
		Email:          req.Email,
		Name:           req.Name,
		ProfilePicture: req.ProfilePicture,
		About:          req.About,
	})
	if errors.Is(err, services.ErrEmailAndNameRequired) {
		c.String(http.StatusBadRequest, "Email and name are required.")
		return
	}
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.UserResponse{User: u})
}

func (h *UserHandler) AddBatchUsers(c *gin.Context) {
	var req httpdto.BatchUsersRequest
	if !bindJSON(c, &req) {
		return
	}

	contacts := make([]services.ContactInput, 0, len(req.Contacts))
	for _, ct := range req.Contacts {
		contacts = append(contacts, services.ContactInput{
			Email:          ct.Email,
			Name:           ct.Name,
			PhoneNumber:    ct.PhoneNumber,
			ProfilePicture: ct.ProfilePicture,
			About:          ct.About,
		})
	}

	created, err := h.service.CreateBatch(c.Request.Context(), req.Start(), contacts)
	if errors.Is(err, services.ErrNoContacts) {
		c.JSON(http.StatusBadRequest, httpdto.ErrorMessage{Error: "No contacts provided."})
		return
	}
	if errors.Is(err, services.ErrContactNameRequired) {
		c.JSON(http.StatusBadRequest, httpdto.ErrorMessage{Error: "Every contact needs a name."})
		return
	}
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.BatchCreatedResponse{
		Message: fmt.Sprintf("%d contacts created successfully.", created),
	})
}

func (h *UserHandler) DeleteBatchUsers(c *gin.Context) {
	startID, err := strconv.Atoi(c.Param("startId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.ErrorMessage{Error: "Invalid start id."})
		return
	}

	deleted, err := h.service.DeleteBatch(c.Request.Context(), startID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, httpdto.BatchDeletedResponse{Message: "Contacts deleted.", DeletedCount: deleted})
}

func (h *UserHandler) AddUserWithID(c *gin.Context) {
	var req httpdto.AddUserWithIDRequest
	if !bindJSON(c, &req) {
		return
	}

	u, err := h.service.CreateWithID(c.Request.Context(), services.NewUserInput{
		ID:             req.ID.Int(),
		Email:          req.Email,
		Name:           req.Name,
		ProfilePicture: req.ProfilePicture,
		About:          req.About,
	})
	switch {
	case errors.Is(err, services.ErrInvalidCustomID):
		c.JSON(http.StatusBadRequest, httpdto.MsgResponse{Msg: "ID must be provided and >= 100"})
	case errors.Is(err, services.ErrEmailAndNameRequired):
		c.JSON(http.StatusBadRequest, httpdto.MsgResponse{Msg: "Email and name are required"})
	case errors.Is(err, services.ErrUserIDTaken):
		c.JSON(http.StatusConflict, httpdto.MsgResponse{Msg: "User ID already exists"})
	case err != nil:
		_ = c.Error(err)
	default:
		c.JSON(http.StatusCreated, httpdto.UserResponse{User: u})
	}
}

func (h *UserHandler) Onboard(c *gin.Context) {
	var req httpdto.OnboardRequest
	if !bindJSON(c, &req) {
		return
	}

	_, err := h.service.Onboard(c.Request.Context(), services.OnboardInput{
		Email: req.Email,
		Name:  req.Name,
		About: req.About,
		Image: req.Image,
	})
	if errors.Is(err, services.ErrOnboardFields) {
		c.JSON(http.StatusOK, httpdto.NewStatusResponse("Email, Name and Image are required", false))
		return
	}
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewStatusResponse("Success", true))
}

func (h *UserHandler) GetContacts(c *gin.Context) {
	groups, err := h.service.ListGrouped(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, httpdto.ContactsResponse{Users: groups})
}

// bindJSON decodes the body into dst and answers 400 when it is not valid
// JSON. An empty body decodes as the zero value.
func bindJSON(c *gin.Context, dst any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewStatusResponse("invalid request", false))
		return false
	}
	return true
}
