package api

import (
	"errors"
	"net/http"
	"net/mail"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"todosync/domain"
	"todosync/storage"
)

const bcryptCost = 10

// Register wires up all routes on the provided Echo instance.
func Register(e *echo.Echo, store Storage, auth *Auth, hub *Hub, logger *log.Logger) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	e.POST("/api/register", registerUser(store, logger))
	e.POST("/api/login", login(store, auth, logger))
	e.GET("/api/tasks", getTasks(store, auth))
	e.POST("/api/tasks", createTask(store, auth))
	e.PATCH("/api/tasks/:id", updateTask(store, auth))
	e.DELETE("/api/tasks/:id", deleteTask(store, auth))
	e.DELETE("/api/users/me", deleteAccount(store, auth, logger))
	e.GET("/ws", syncSocket(hub, auth))
	e.GET("/healthz", healthz())
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func registerUser(store Storage, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var creds credentials
		if err := c.Bind(&creds); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if _, err := mail.ParseAddress(creds.Email); err != nil {
			return c.String(http.StatusBadRequest, "malformed email")
		}
		if creds.Password == "" {
			return c.String(http.StatusBadRequest, "empty password")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcryptCost)
		if err != nil {
			logger.Errorf("hash password: %v", err)
			return c.String(http.StatusInternalServerError, "internal server error")
		}
		if err := store.AddUser(c.Request().Context(), creds.Email, string(hash)); err != nil {
			if errors.Is(err, storage.ErrUserExists) {
				return c.String(http.StatusConflict, "user already exists")
			}
			logger.Errorf("add user: %v", err)
			return c.String(http.StatusInternalServerError, "failed to add user")
		}
		return c.JSON(http.StatusOK, "user added")
	}
}

func login(store Storage, issuer TokenIssuer, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var creds credentials
		if err := c.Bind(&creds); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		hash, err := store.PasswordHash(c.Request().Context(), creds.Email)
		if err != nil {
			if errors.Is(err, storage.ErrUserNotFound) {
				return c.String(http.StatusUnauthorized, "invalid credentials")
			}
			logger.Errorf("fetch password: %v", err)
			return c.String(http.StatusInternalServerError, "internal server error")
		}
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(creds.Password)) != nil {
			return c.String(http.StatusUnauthorized, "invalid credentials")
		}
		token, err := issuer.Issue(creds.Email)
		if err != nil {
			logger.Errorf("issue token: %v", err)
			return c.String(http.StatusInternalServerError, "internal server error")
		}
		return c.JSON(http.StatusOK, map[string]string{"token": token})
	}
}

func getTasks(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		tasks, err := store.ListByOwner(c.Request().Context(), userID)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, "internal server error")
		}
		return c.JSON(http.StatusOK, tasks)
	}
}

func createTask(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var task domain.Task
		if err := c.Bind(&task); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if task.ID == "" || task.Content == "" {
			return c.String(http.StatusBadRequest, "missing task fields")
		}
		task.Owner = userID
		if err := store.CreateTask(c.Request().Context(), task); err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, "internal server error")
		}
		return c.JSON(http.StatusOK, "task added")
	}
}

// taskPatch is a partial update: exactly one of content or done must be set.
type taskPatch struct {
	Content *string `json:"content"`
	Done    *bool   `json:"done"`
}

func updateTask(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var patch taskPatch
		if err := c.Bind(&patch); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if (patch.Content == nil) == (patch.Done == nil) {
			return c.String(http.StatusBadRequest, "exactly one of content or done required")
		}
		id := c.Param("id")
		ctx := c.Request().Context()
		if patch.Content != nil {
			if *patch.Content == "" {
				return c.String(http.StatusBadRequest, "empty content")
			}
			err = store.UpdateContent(ctx, id, userID, *patch.Content)
		} else {
			err = store.UpdateDone(ctx, id, userID, *patch.Done)
		}
		if err != nil {
			if errors.Is(err, storage.ErrTaskNotFound) {
				return c.String(http.StatusNotFound, "task not found")
			}
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, "internal server error")
		}
		return c.JSON(http.StatusOK, "task updated")
	}
}

func deleteTask(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		if err := store.DeleteTask(c.Request().Context(), c.Param("id"), userID); err != nil {
			if errors.Is(err, storage.ErrTaskNotFound) {
				return c.String(http.StatusNotFound, "task not found")
			}
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, "internal server error")
		}
		return c.JSON(http.StatusOK, "task removed")
	}
}

func deleteAccount(store Storage, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		if err := store.DeleteUser(c.Request().Context(), userID); err != nil {
			if errors.Is(err, storage.ErrUserNotFound) {
				return c.String(http.StatusNotFound, "user not found")
			}
			logger.Errorf("delete user: %v", err)
			return c.String(http.StatusInternalServerError, "failed to delete user")
		}
		logger.Infof("deleted account %s", userID)
		return c.JSON(http.StatusOK, "user deleted")
	}
}
