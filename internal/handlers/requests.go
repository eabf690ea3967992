package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pickup-backend/internal/lifecycle"
	"pickup-backend/internal/middleware"
	"pickup-backend/internal/models"
	"pickup-backend/internal/prediction"
)

type createRequestBody struct {
	CustomerName string `json:"customerName"`
	Phone        string `json:"phone"`
	ItemDetails  string `json:"itemDetails"`
	Address      string `json:"address"`
	PickupDate   string `json:"pickupDate"`
	PickupTime   string `json:"pickupTime"`
	AssignedTo   string `json:"assignedTo"`
}

func CreatePickupRequest(svc *lifecycle.Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer handlePanic(c, logger, "REQUESTS")

		var body createRequestBody
		if err := c.ShouldBindJSON(&body); err != nil {
			respondValidationError(c, err)
			return
		}

		created, err := svc.CreateRequest(c.Request.Context(), lifecycle.CreateInput(body))
		if err != nil {
			respondServiceError(c, logger, "REQUESTS", err)
			return
		}
		c.JSON(http.StatusCreated, created)
	}
}

// ListAccountRequests lists the requests assigned to :id. Collectors may
// only list their own.
func ListAccountRequests(svc *lifecycle.Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer handlePanic(c, logger, "REQUESTS")

		accountID, role, ok := middleware.Principal(c)
		if !ok {
			respondWithError(c, logger, http.StatusUnauthorized, "REQUESTS", "unauthorized")
			return
		}
		target := c.Param("id")
		if role != models.RoleDispatcher && target != accountID.Hex() {
			respondWithError(c, logger, http.StatusForbidden, "REQUESTS", "forbidden")
			return
		}

		page, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		list, err := svc.ListForAssignee(c.Request.Context(), target, page)
		if err != nil {
			respondServiceError(c, logger, "REQUESTS", err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func GetPickupRequest(svc *lifecycle.Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer handlePanic(c, logger, "REQUESTS")

		r, ok := loadAuthorized(c, svc, logger)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, r)
	}
}

func UpdatePickupRequest(svc *lifecycle.Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer handlePanic(c, logger, "REQUESTS")

		var body updateRequestBody
		if err := c.ShouldBindJSON(&body); err != nil {
			respondValidationError(c, err)
			return
		}
		patch, err := body.toPatch()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if _, ok := loadAuthorized(c, svc, logger); !ok {
			return
		}

		updated, err := svc.UpdateRequest(c.Request.Context(), c.Param("id"), patch)
		if err != nil {
			respondServiceError(c, logger, "REQUESTS", err)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

// GetRequestReport renders the latest report as text, or as JSON with ?format=json.
func GetRequestReport(svc *lifecycle.Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer handlePanic(c, logger, "REPORTS")

		r, ok := loadAuthorized(c, svc, logger)
		if !ok {
			return
		}
		if r.Report == nil {
			respondWithError(c, logger, http.StatusNotFound, "REPORTS", "report not generated yet")
			return
		}

		if c.Query("format") == "json" {
			c.JSON(http.StatusOK, r.Report)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="`+r.Report.ReportID+`.txt"`)
		c.String(http.StatusOK, lifecycle.RenderReport(r.Report))
	}
}

func PredictForRequest(svc *lifecycle.Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer handlePanic(c, logger, "PREDICTION")

		var attrs models.ApplianceAttributes
		if err := c.ShouldBindJSON(&attrs); err != nil {
			respondValidationError(c, err)
			return
		}

		if _, ok := loadAuthorized(c, svc, logger); !ok {
			return
		}

		updated, err := svc.PredictForRequest(c.Request.Context(), c.Param("id"), attrs)
		if err != nil {
			respondServiceError(c, logger, "PREDICTION", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"request":          updated,
			"predictionResult": updated.PredictionResult,
			"suggestedAmount":  prediction.SuggestedAmount(updated.PredictionResult),
		})
	}
}

func PredictPrice(svc *lifecycle.Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer handlePanic(c, logger, "PREDICTION")

		var attrs models.ApplianceAttributes
		if err := c.ShouldBindJSON(&attrs); err != nil {
			respondValidationError(c, err)
			return
		}
		assessment, _ := models.NewAssessment(nil, &attrs)

		result, err := svc.RequestPricePrediction(c.Request.Context(), assessment)
		if err != nil {
			respondServiceError(c, logger, "PREDICTION", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"scrapPrice":      result.ScrapPrice,
			"repairCost":      result.RepairCost,
			"finalAmount":     result.FinalAmount,
			"suggestedAmount": prediction.SuggestedAmount(result),
		})
	}
}

func GetVerificationQuestions() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"questions": models.DefaultVerificationQuestions})
	}
}

// loadAuthorized fetches :id and checks the caller is its assignee or a dispatcher.
func loadAuthorized(c *gin.Context, svc *lifecycle.Service, logger *zap.Logger) (*models.PickupRequest, bool) {
	accountID, role, ok := middleware.Principal(c)
	if !ok {
		respondWithError(c, logger, http.StatusUnauthorized, "REQUESTS", "unauthorized")
		return nil, false
	}

	r, err := svc.GetRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, logger, "REQUESTS", err)
		return nil, false
	}
	if role != models.RoleDispatcher && r.AssignedTo != accountID {
		respondWithError(c, logger, http.StatusForbidden, "REQUESTS", "forbidden")
		return nil, false
	}
	return r, true
}
