package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/dairy-portal/internal/apiclient"
	"github.com/spec-kit/dairy-portal/internal/auth"
	"github.com/spec-kit/dairy-portal/internal/domain"
	"github.com/spec-kit/dairy-portal/internal/guard"
	"github.com/spec-kit/dairy-portal/internal/session"
	apperrors "github.com/spec-kit/dairy-portal/pkg/util"
)

const logoutTimeout = 5 * time.Second

func entryFrom(c *fiber.Ctx) (*session.Entry, error) {
	entry, ok := auth.EntryFromContext(c)
	if !ok {
		return nil, apperrors.NewInternalError(errors.New("session entry missing"))
	}
	return entry, nil
}

// sessionClient decorates api with the entry's credential; a rejected
// credential logs the browser out.
func sessionClient(api *apiclient.Client, entry *session.Entry) *apiclient.Client {
	store := entry.Store()
	return api.WithSession(store.Credential, func() {
		ctx, cancel := context.WithTimeout(context.Background(), logoutTimeout)
		defer cancel()
		store.Logout(ctx, domain.LogoutUnauthorized)
	})
}

// mapAPIError turns client failures into responses. An invalidated session
// sends the browser back to login.
func mapAPIError(c *fiber.Ctx, paths guard.Paths, err error) error {
	if errors.Is(err, apiclient.ErrUnauthorized) {
		return guard.Redirect(c, paths.Login)
	}
	if errors.Is(err, apiclient.ErrUnavailable) || errors.Is(err, apiclient.ErrUnexpectedResponse) {
		return apperrors.NewBadGateway(err)
	}
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		status := apiErr.Status
		if status >= http.StatusInternalServerError {
			status = http.StatusBadGateway
		}
		return apperrors.NewDomainError("UPSTREAM_REJECTED", apiErr.Message, status, nil)
	}
	return apperrors.NewInternalError(err)
}

// respondRedirect answers form posts with 303 and XHR with a JSON body.
func respondRedirect(c *fiber.Ctx, location string, body interface{}) error {
	if guard.WantsJSON(c) {
		return c.JSON(body)
	}
	return c.Redirect(location, fiber.StatusSeeOther)
}
