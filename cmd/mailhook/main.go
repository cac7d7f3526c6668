// Command mailhook is a development stand-in for the mailer: it accepts confirmation
// webhooks and logs the confirmation link instead of sending an email.
package main

import (
	"errors"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/rryowa/shopapi/internal/models"
	"github.com/rryowa/shopapi/internal/util"
)

const defaultAddr = ":9090"

func main() {
	logger := util.NewZapLogger()
	defer func() { _ = logger.Sync() }()

	addr := os.Getenv("MAILHOOK_ADDRESS")
	if addr == "" {
		addr = defaultAddr
	}
	baseURL := os.Getenv("PUBLIC_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	e := echo.New()
	e.HideBanner = true
	e.POST("/", receive(logger, baseURL))

	logger.Infof("Webhook receiver listening on %s", addr)
	if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal(zap.Error(err))
	}
}

func receive(logger *zap.SugaredLogger, baseURL string) echo.HandlerFunc {
	return func(c echo.Context) error {
		var msg models.ConfirmationMessage
		if err := c.Bind(&msg); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "error parsing JSON")
		}
		if msg.Email == "" || msg.Token == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "email and token are required")
		}

		logger.Infow("Received confirmation webhook",
			"userID", msg.UserID,
			"email", msg.Email,
			"link", baseURL+"/api/auth/confirm/"+msg.Token,
		)
		return c.String(http.StatusOK, "Webhook received!")
	}
}
