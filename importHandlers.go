package main

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rossperleberg/jib-payments/models"
	"github.com/rossperleberg/jib-payments/reports"
	"github.com/rossperleberg/jib-payments/utils"
)

// importUpload pulls the multipart file and account id out of an import
// request. The file goes through the pipeline as an io.Reader; nothing is
// written to disk.
func importUpload(c *gin.Context) (accountId int, fileName string, file *bytes.Reader, ok bool) {
	accountId, err := strconv.Atoi(c.PostForm("account_id"))
	if err != nil || accountId <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "account_id is required"})
		return 0, "", nil, false
	}
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return 0, "", nil, false
	}
	f, err := header.Open()
	if err != nil {
		respondError(c, err)
		return 0, "", nil, false
	}
	defer f.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(f); err != nil {
		respondError(c, err)
		return 0, "", nil, false
	}
	fileName = header.Filename
	if fileName == "" {
		fileName = utils.GenerateUniqueFilename() + ".csv"
	}
	return accountId, fileName, bytes.NewReader(buf.Bytes()), true
}

func importPaymentsHandler(c *gin.Context) {
	accountId, fileName, file, ok := importUpload(c)
	if !ok {
		return
	}
	stats, err := models.ImportPayments(c.Request.Context(), accountId, fileName, file)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func importHistoryHandler(c *gin.Context) {
	accountId, fileName, file, ok := importUpload(c)
	if !ok {
		return
	}
	stats, err := models.ImportHistoricalPayments(c.Request.Context(), accountId, fileName, file)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func importTemplateHandler(c *gin.Context) {
	f, err := reports.BuildImportTemplate()
	if err != nil {
		respondError(c, err)
		return
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="import_template.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func importTemplateCSVHandler(c *gin.Context) {
	var buf bytes.Buffer
	if err := reports.WriteImportTemplateCSV(&buf); err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="import_template.csv"`)
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

func exportPaymentsHandler(c *gin.Context) {
	payments, err := models.GetPayments(c.Request.Context(), paymentFilterFromQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	operators, err := models.GetOperators(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	byId := make(map[int]models.Operator, len(operators))
	for _, op := range operators {
		byId[op.ID] = op
	}
	var buf bytes.Buffer
	if err := reports.WritePaymentsCSV(&buf, payments, byId); err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="payments.csv"`)
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

func exportOperatorsHandler(c *gin.Context) {
	operators, err := models.GetOperators(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	var buf bytes.Buffer
	if err := reports.WriteOperatorsCSV(&buf, operators); err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="operators.csv"`)
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}
