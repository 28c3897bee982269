package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/bilbomap/internal/core/domain"
	"github.com/samirrijal/bilbomap/internal/core/ports"
	"github.com/samirrijal/bilbomap/internal/core/usecases"
)

const (
	maxQueryLength  = 200
	maxAroundRadius = 50000
	maxHitsPerPage  = 1000
)

// searchStateFromQuery reads a search state from query parameters:
// q, inside_bounding_box (neLat,neLng,swLat,swLng), around (lat,lng),
// around_radius (meters), page (1-based) and hits_per_page.
func searchStateFromQuery(c *fiber.Ctx) (domain.SearchState, string) {
	var st domain.SearchState

	st.Query = c.Query("q")
	if len(st.Query) > maxQueryLength {
		return st, "query too long (max 200 characters)"
	}

	if raw := c.Query("inside_bounding_box"); raw != "" {
		box, err := domain.ParseBoundingBox(raw)
		if err != nil {
			return st, "inside_bounding_box: " + err.Error()
		}
		st.BoundingBox = &box
	}

	if raw := c.Query("around"); raw != "" {
		p, err := domain.ParseLatLng(raw)
		if err != nil {
			return st, "around: " + err.Error()
		}
		st.AroundLatLng = &p
	}

	st.AroundRadius = c.QueryFloat("around_radius", 0)
	if st.AroundRadius < 0 || st.AroundRadius > maxAroundRadius {
		return st, "around_radius must be between 0 and 50000 meters (0 uses the default)"
	}

	st.Page = c.QueryInt("page", 1)
	if st.Page < 1 {
		return st, "page must be 1 or greater"
	}

	st.HitsPerPage = c.QueryInt("hits_per_page", 0)
	if st.HitsPerPage < 0 || st.HitsPerPage > maxHitsPerPage {
		return st, "hits_per_page must be between 1 and 1000"
	}
	return st, ""
}

// SearchHandler runs a one-shot search. A bounding box takes precedence over
// an around point.
func SearchHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		state, msg := searchStateFromQuery(c)
		if msg != "" {
			return errBadRequest(c, msg)
		}

		res, err := deps.Search.Search(c.UserContext(), state)
		if err != nil {
			return errFrom(c, err)
		}

		SetLinkHeaders(c, NewPagination(res.Page, res.HitsPerPage, res.NbHits))
		return c.JSON(res)
	}
}

// GetSessionHandler returns the refinement state, controls and current
// refinements of a live map session.
func GetSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := deps.Sessions.Get(c.Params("id"))
		if err != nil {
			return errFrom(c, err)
		}
		view, err := sess.View(c.UserContext())
		if err != nil {
			return errFrom(c, err)
		}
		return c.JSON(view)
	}
}

type positionRequest struct {
	Position *domain.LatLng `json:"position"`
}

// SessionPositionHandler sets or, with a null position, removes the "search
// around" point of a session. Updates for sessions this instance does not
// hold are forwarded over NATS when a forwarder is configured.
func SessionPositionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req positionRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Position != nil {
			if err := req.Position.Validate(); err != nil {
				return errBadRequest(c, err.Error())
			}
		}
		id := c.Params("id")
		sess, err := deps.Sessions.Get(id)
		if errors.Is(err, usecases.ErrSessionNotFound) && deps.Positions != nil {
			if err := deps.Positions.PublishPosition(&ports.PositionUpdate{SessionID: id, Position: req.Position}); err != nil {
				return errInternal(c, err)
			}
			return c.SendStatus(fiber.StatusAccepted)
		}
		if err != nil {
			return errFrom(c, err)
		}
		if err := sess.SetPosition(req.Position); err != nil {
			return errFrom(c, err)
		}
		return c.SendStatus(fiber.StatusAccepted)
	}
}

// SessionClearHandler removes the map refinement of a session, the action
// behind its current-refinements item.
func SessionClearHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := deps.Sessions.Get(c.Params("id"))
		if err != nil {
			return errFrom(c, err)
		}
		if err := sess.Clear(); err != nil {
			return errFrom(c, err)
		}
		return c.SendStatus(fiber.StatusAccepted)
	}
}
