package main

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rossperleberg/jib-payments/config"
	"github.com/rossperleberg/jib-payments/models"
	"github.com/rossperleberg/jib-payments/utils"
)

// respondError maps domain errors onto the HTTP surface:
// missing records are 404, rule violations and bad uploads are 400 with
// details, everything else is a logged 500.
func respondError(c *gin.Context, err error) {
	if err == utils.ErrorRecordNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
		return
	}
	if bre, ok := err.(*utils.BusinessRuleError); ok {
		body := gin.H{"error": bre.Reason}
		if len(bre.Details) > 0 {
			body["details"] = bre.Details
		}
		c.JSON(http.StatusBadRequest, body)
		return
	}
	if pe, ok := err.(*utils.ParseError); ok {
		body := gin.H{"error": pe.Message}
		if len(pe.Headers) > 0 {
			body["headers"] = pe.Headers
		}
		c.JSON(http.StatusBadRequest, body)
		return
	}
	if ve, ok := err.(validator.ValidationErrors); ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "details": utils.ProcessValidationErrors(ve)})
		return
	}

	logger := config.GetLogger()
	cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
	config.LogError(logger, "handlers.go", "respondError", c.FullPath(), cid, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

type idListRequest struct {
	PaymentIds []int `json:"payment_ids" binding:"required"`
}

func listAccountsHandler(c *gin.Context) {
	accounts, err := models.GetAccounts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, accounts)
}

func getAccountHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	account, err := models.GetAccountById(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func createAccountHandler(c *gin.Context) {
	var input models.NewAccount
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	account, err := models.CreateAccount(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, account)
}

func updateAccountHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.NewAccount
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	account, err := models.UpdateAccount(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func deleteAccountHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	if err := models.DeleteAccount(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func listOperatorsHandler(c *gin.Context) {
	operators, err := models.GetOperators(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, operators)
}

func getOperatorHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	operator, err := models.GetOperatorById(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, operator)
}

func createOperatorHandler(c *gin.Context) {
	var input models.NewOperator
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	operator, err := models.CreateOperator(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, operator)
}

func updateOperatorHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.NewOperator
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	operator, err := models.UpdateOperator(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, operator)
}

func deleteOperatorHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	if err := models.DeleteOperator(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func listCreditsHandler(c *gin.Context) {
	credits, err := models.GetCredits(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, credits)
}

func createCreditHandler(c *gin.Context) {
	var input models.NewCredit
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	credit, err := models.CreateCredit(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, credit)
}

func updateCreditHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.NewCredit
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	credit, err := models.UpdateCredit(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, credit)
}

func deleteCreditHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	if err := models.DeleteCredit(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func dashboardHandler(c *gin.Context) {
	summary, err := models.GetDashboardSummary(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func createActivityHandler(c *gin.Context) {
	var input models.NewActivityLog
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	entry, err := models.CreateActivity(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func activityLogHandler(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	entries, err := models.GetActivityLog(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}
