package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type startScanRequest struct {
	URLs []any `json:"urls"`
}

type startScanResponse struct {
	Success       bool   `json:"success"`
	ScanID        string `json:"scanId"`
	Message       string `json:"message"`
	EstimatedTime int    `json:"estimatedTime"`
}

type jobResponse struct {
	Success bool `json:"success"`
	Job
}

func respondError(c *gin.Context, status int, msg string) {
	c.JSON(status, errorResponse{Success: false, Error: msg})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "attrguard API is running",
	})
}

func (s *Server) handleStartScan(c *gin.Context) {
	var req startScanRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.URLs) == 0 {
		respondError(c, http.StatusBadRequest, "URLs array is required and must not be empty")
		return
	}

	urls := filterURLs(req.URLs)
	if len(urls) == 0 {
		respondError(c, http.StatusBadRequest, "No valid URLs provided")
		return
	}

	job := s.startJob(urls)
	c.JSON(http.StatusOK, startScanResponse{
		Success:       true,
		ScanID:        job.ID,
		Message:       fmt.Sprintf("Started scanning %d URLs", len(urls)),
		EstimatedTime: len(urls) * 2,
	})
}

func (s *Server) handleGetScan(c *gin.Context) {
	job, ok := s.jobs.Get(c.Param("id"))
	if !ok {
		respondError(c, http.StatusNotFound, "Scan not found")
		return
	}
	c.JSON(http.StatusOK, jobResponse{Success: true, Job: job})
}

func (s *Server) handleDownloadCSV(c *gin.Context) {
	job, ok := s.jobs.Get(c.Param("id"))
	if !ok || job.CSVFile == "" {
		respondError(c, http.StatusNotFound, "CSV report not found")
		return
	}
	if !fileExists(job.CSVFile) {
		respondError(c, http.StatusNotFound, "CSV file not found on disk")
		return
	}
	c.FileAttachment(job.CSVFile, CSVDownloadName)
}
