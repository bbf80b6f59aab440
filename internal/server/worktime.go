package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/pointagehq/pointage/internal/orgcontext"
	worktimedomain "github.com/pointagehq/pointage/internal/worktime/domain"
	"github.com/pointagehq/pointage/internal/worktime/export"
	"go.uber.org/zap"
)

const defaultSummaryDays = 7

// reportingLocation resolves the reporting timezone once per server.
func (s *Server) reportingLocation() *time.Location {
	s.locOnce.Do(func() {
		s.loc, s.locErr = s.cfg.ReportingLocation()
		if s.locErr != nil {
			s.log.Error("invalid reporting timezone, falling back to UTC", zap.Error(s.locErr))
			s.loc = time.UTC
		}
	})
	return s.loc
}

func (s *Server) sessionUser(c *gin.Context) (snowflake.ID, bool) {
	userID, ok := orgcontext.UserIDFromContext(c.Request.Context())
	if !ok {
		return 0, false
	}
	return snowflake.ID(userID), true
}

func pathUserID(c *gin.Context) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil || id == 0 {
		return 0, worktimedomain.ErrInvalidUser
	}
	return id, nil
}

// parseInstant accepts RFC 3339 or a bare date in the reporting timezone.
func (s *Server) parseInstant(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, s.reportingLocation())
	if err != nil {
		return time.Time{}, worktimedomain.ErrInvalidRange
	}
	return t, nil
}

func (s *Server) parseRange(c *gin.Context) (time.Time, time.Time, error) {
	now := time.Now().In(s.reportingLocation())
	from := now.AddDate(0, 0, -defaultSummaryDays)
	to := now

	var err error
	if raw := c.Query("from"); raw != "" {
		if from, err = s.parseInstant(raw); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if raw := c.Query("to"); raw != "" {
		if to, err = s.parseInstant(raw); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, worktimedomain.ErrInvalidRange
	}
	return from, to, nil
}

func (s *Server) parseMonth(c *gin.Context) (int, time.Month, error) {
	now := time.Now().In(s.reportingLocation())
	year, month := now.Year(), now.Month()

	if raw := c.Query("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 2000 || parsed > 2200 {
			return 0, 0, worktimedomain.ErrInvalidRange
		}
		year = parsed
	}
	if raw := c.Query("month"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 12 {
			return 0, 0, worktimedomain.ErrInvalidRange
		}
		month = time.Month(parsed)
	}
	return year, month, nil
}

func (s *Server) MyStatus(c *gin.Context) {
	userID, ok := s.sessionUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	status, err := s.worktimeSvc.StatusFor(c.Request.Context(), userID, time.Time{})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) MySummary(c *gin.Context) {
	userID, ok := s.sessionUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	from, to, err := s.parseRange(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	summary, err := s.worktimeSvc.RangeSummary(c.Request.Context(), userID, from, to)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) MyWeeklySummary(c *gin.Context) {
	userID, ok := s.sessionUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	day := time.Now().In(s.reportingLocation())
	if raw := c.Query("day"); raw != "" {
		var err error
		if day, err = s.parseInstant(raw); err != nil {
			AbortWithError(c, err)
			return
		}
	}
	summary, err := s.worktimeSvc.WeeklySummary(c.Request.Context(), userID, day)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) MyMonthlySummary(c *gin.Context) {
	userID, ok := s.sessionUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	year, month, err := s.parseMonth(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	summary, err := s.worktimeSvc.MonthlySummary(c.Request.Context(), userID, year, month)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) UserStatus(c *gin.Context) {
	userID, err := pathUserID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	status, err := s.worktimeSvc.StatusFor(c.Request.Context(), userID, time.Time{})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) UserSummary(c *gin.Context) {
	userID, err := pathUserID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	from, to, err := s.parseRange(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	summary, err := s.worktimeSvc.RangeSummary(c.Request.Context(), userID, from, to)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) UserMonthlySummary(c *gin.Context) {
	userID, err := pathUserID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	year, month, err := s.parseMonth(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	summary, err := s.worktimeSvc.MonthlySummary(c.Request.Context(), userID, year, month)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// UserMonthlyWorkbook streams the XLSX report HR downloads.
func (s *Server) UserMonthlyWorkbook(c *gin.Context) {
	userID, err := pathUserID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	year, month, err := s.parseMonth(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	user, err := s.orgSvc.GetUser(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	summary, err := s.worktimeSvc.MonthlySummary(c.Request.Context(), userID, year, month)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	workbook, err := export.MonthlyWorkbook(user.DisplayName, summary)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	defer workbook.Close()

	filename := fmt.Sprintf("pointage-%s-%04d-%02d.xlsx", userID.String(), year, int(month))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Status(http.StatusOK)
	if err := workbook.Write(c.Writer); err != nil {
		s.log.Error("workbook write failed", zap.Error(err))
	}
}

func (s *Server) OrgReport(c *gin.Context) {
	from, to, err := s.parseRange(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	report, err := s.worktimeSvc.OrgSummary(c.Request.Context(), from, to)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
