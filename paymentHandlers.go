package main

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rossperleberg/jib-payments/models"
	"github.com/rossperleberg/jib-payments/workflow"
)

func paymentFilterFromQuery(c *gin.Context) models.PaymentFilter {
	filter := models.PaymentFilter{
		Status: models.PaymentStatus(c.Query("status")),
		Method: models.PaymentMethod(c.Query("method")),
	}
	if v, err := strconv.Atoi(c.Query("account_id")); err == nil {
		filter.AccountId = v
	}
	if v, err := strconv.Atoi(c.Query("batch_id")); err == nil {
		filter.BatchId = v
	}
	return filter
}

func listPaymentsHandler(c *gin.Context) {
	payments, err := models.GetPayments(c.Request.Context(), paymentFilterFromQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}

func getPaymentHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	payment, err := models.GetPaymentById(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

func createPaymentHandler(c *gin.Context) {
	var input models.NewPayment
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	payment, err := models.CreatePayment(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, payment)
}

func updatePaymentHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.UpdatePaymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	payment, err := models.UpdatePayment(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

func deletePaymentHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	if err := models.DeletePayment(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func bulkDeletePaymentsHandler(c *gin.Context) {
	var req idListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	deleted, err := models.BulkDeletePayments(c.Request.Context(), req.PaymentIds)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func assignOperatorHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input workflow.AssignOperatorInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	payment, err := workflow.AssignOperator(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

func moveToEntryTrackerHandler(c *gin.Context) {
	var req idListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	moved, err := workflow.MoveToEntryTracker(c.Request.Context(), req.PaymentIds)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"moved": moved})
}

func entryFlagsHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input workflow.EntryFlagsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	payment, err := workflow.SetEntryFlags(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

func markCompleteHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	payment, err := workflow.MarkComplete(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

func markAllSentCompleteHandler(c *gin.Context) {
	completed, err := workflow.MarkAllSentComplete(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"completed": completed})
}

func markProcessedHandler(c *gin.Context) {
	var req idListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	updated, err := workflow.MarkPaymentsProcessed(c.Request.Context(), req.PaymentIds)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"processed": updated})
}

func sendBackToEntryHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	payment, err := workflow.SendBackToEntry(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

func sendChecksToBillPayHandler(c *gin.Context) {
	var input workflow.SendChecksInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := workflow.SendChecksToBillPay(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func markCheckSentHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input workflow.MarkCheckSentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	payment, err := workflow.MarkCheckSent(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

func applyCreditHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input workflow.ApplyCreditInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := workflow.ApplyCredit(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func removeCreditHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	payment, err := workflow.RemoveAppliedCredit(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

func creditApplicationsHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	applications, err := models.GetCreditApplicationsForPayment(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, applications)
}
