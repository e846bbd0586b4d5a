package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"todosync/domain"
)

const (
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = 50 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// syncSocket upgrades the connection to a websocket, binds it to the caller's
// account, and relays events both ways: inbound frames are published to
// sibling sessions, hub deliveries are written out.
func syncSocket(hub *Hub, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		if token := c.QueryParam("token"); authHeader == "" && token != "" {
			authHeader = "Bearer " + token
		}
		userID, err := auth.UserIDFromAuthHeader(authHeader)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}

		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			return err
		}

		sess := NewSession(uuid.NewString(), userID)
		hub.Register(sess)
		defer func() {
			hub.Unregister(sess)
			conn.Close()
		}()

		go writePump(conn, sess)
		readPump(c, conn, hub, sess)
		return nil
	}
}

func readPump(c echo.Context, conn *websocket.Conn, hub *Hub, sess *Session) {
	conn.SetReadDeadline(time.Now().Add(pongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})
	for {
		var event domain.Event
		if err := conn.ReadJSON(&event); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.Logger().Errorf("session %s read: %v", sess.ID, err)
			}
			return
		}
		if err := event.Valid(); err != nil {
			c.Logger().Warnf("session %s sent invalid event: %v", sess.ID, err)
			continue
		}
		hub.Publish(c.Request().Context(), sess, event)
	}
}

func writePump(conn *websocket.Conn, sess *Session) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-sess.Done():
			return
		case ev := <-sess.Events():
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				sess.Close()
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				sess.Close()
				return
			}
		}
	}
}
