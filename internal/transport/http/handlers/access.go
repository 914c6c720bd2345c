package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/book-buyback/internal/core/domain"
	"github.com/arklim/book-buyback/internal/transport/http/middleware"
)

// ownsResource lets staff and admins through and holds customers to their own
// records. On refusal the 403 has already been written.
func ownsResource(c *gin.Context, customerID string) bool {
	if middleware.GetPrincipalKind(c) != domain.PrincipalCustomer {
		return true
	}
	if principalID, ok := middleware.GetPrincipalID(c); ok && principalID == customerID {
		return true
	}
	c.JSON(http.StatusForbidden, NewErrorResponse(c, "insufficient permissions"))
	return false
}

// customerFilter returns the principal ID when the caller is a customer, so
// listings can be narrowed to their own records.
func customerFilter(c *gin.Context) (string, bool) {
	if middleware.GetPrincipalKind(c) != domain.PrincipalCustomer {
		return "", false
	}
	id, _ := middleware.GetPrincipalID(c)
	return id, true
}
