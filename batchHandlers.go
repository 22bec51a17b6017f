package main

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rossperleberg/jib-payments/models"
	"github.com/rossperleberg/jib-payments/workflow"
)

func generateAchHandler(c *gin.Context) {
	var input workflow.GenerateAchBatchInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := workflow.GenerateAchBatch(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func listBatchesHandler(c *gin.Context) {
	batches, err := models.GetBatches(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, batches)
}

func getBatchHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	batch, err := models.GetBatchById(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

// downloadBatchHandler re-renders the bank file from the batch's current
// payments and streams it with the recorded file name.
func downloadBatchHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	result, err := workflow.RegenerateBatchFile(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.FileName))
	c.Data(http.StatusOK, "text/csv", []byte(result.FileContent))
}

func deleteBatchHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	if err := workflow.DeleteAchBatch(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func markBatchProcessedHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	processed, err := workflow.MarkBatchProcessed(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"processed": processed})
}
