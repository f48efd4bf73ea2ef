package user

import (
	"github.com/gofiber/fiber/v2"

	"github.com/acadex/acadex-api/model"
	"github.com/acadex/acadex-api/utils/middleware"
	"github.com/acadex/acadex-api/utils/response"
)

// BulkCreateRequest carries a batch of users to create
type BulkCreateRequest struct {
	Users []CreateUserRequest `json:"users" validate:"required,min=1,max=500"`
}

// BulkItemResult reports the outcome of one item in a bulk request
type BulkItemResult struct {
	Index int    `json:"index"`
	Email string `json:"email"`
	OK    bool   `json:"ok"`
	ID    uint   `json:"id,omitempty"`
	Error string `json:"error,omitempty"`
}

// BulkCreateResponse summarizes a bulk create
type BulkCreateResponse struct {
	Created int              `json:"created"`
	Failed  int              `json:"failed"`
	Results []BulkItemResult `json:"results"`
}

// BulkCreateUsers handles POST /api/v1/users/bulk (admin only). Items are
// processed independently: a bad row is reported and skipped, the rest still
// land.
func (h *UserHandler) BulkCreateUsers(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)

	var req BulkCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if len(req.Users) == 0 {
		return response.BadRequest(c, "No users provided")
	}
	if len(req.Users) > 500 {
		return response.BadRequest(c, "At most 500 users per request")
	}

	res := BulkCreateResponse{Results: make([]BulkItemResult, 0, len(req.Users))}

	for i, item := range req.Users {
		result := BulkItemResult{Index: i, Email: item.Email}

		if err := h.validator.ValidateStruct(item); err != nil {
			result.Error = "validation failed"
			res.Failed++
			res.Results = append(res.Results, result)
			continue
		}

		var existing model.User
		if err := h.db.Where("email = ?", item.Email).First(&existing).Error; err == nil {
			result.Error = "email already exists"
			res.Failed++
			res.Results = append(res.Results, result)
			continue
		}

		user, err := h.buildUser(item)
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				result.Error = fe.Message
			} else {
				result.Error = err.Error()
			}
			res.Failed++
			res.Results = append(res.Results, result)
			continue
		}

		if err := h.db.Create(user).Error; err != nil {
			result.Error = "conflicts with an existing record"
			res.Failed++
			res.Results = append(res.Results, result)
			continue
		}

		h.audit.Log(c.Context(), &actor.ID, model.AuditUserCreate, "user", user.ID, map[string]interface{}{
			"email": user.Email,
			"role":  user.Role,
			"bulk":  true,
		})

		result.OK = true
		result.ID = user.ID
		res.Created++
		res.Results = append(res.Results, result)
	}

	return response.Success(c, res)
}
