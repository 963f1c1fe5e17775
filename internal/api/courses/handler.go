package courses

import (
	"errors"
	"net/http"
	"time"

	"gorm.io/gorm"

	"ta3lem-app/database"
	"ta3lem-app/internal/domain/courses"
	"ta3lem-app/internal/services"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	access *services.AccessService
}

func NewHandler(access *services.AccessService) *Handler {
	return &Handler{access: access}
}

// GET /courses
func (h *Handler) ListCourses(c *gin.Context) {
	var rows []courses.Course
	if err := database.DB.
		Where("status = ?", courses.StatusPublished).
		Order("published_at DESC").
		Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load courses"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"courses": rows})
}

// GET /courses/:slug
func (h *Handler) GetCourse(c *gin.Context) {
	var course courses.Course
	err := database.DB.Where("slug = ?", c.Param("slug")).First(&course).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load course"})
		return
	}

	userID := c.GetUint("user_id")
	if course.Status != courses.StatusPublished && course.OwnerID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
		return
	}

	resp := gin.H{"course": course}

	if userID != 0 {
		allowed, reason, err := h.access.CanAccess(userID, &course)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to evaluate access"})
			return
		}
		resp["access"] = gin.H{"allowed": allowed, "reason": reason}

		if allowed {
			var modules []courses.Module
			database.DB.Preload("Contents", func(db *gorm.DB) *gorm.DB {
				return db.Order("contents.position ASC")
			}).
				Where("course_id = ?", course.ID).
				Order("position ASC").
				Find(&modules)
			resp["modules"] = modules
		}
	}

	c.JSON(http.StatusOK, resp)
}

// GET /courses/:slug/options
func (h *Handler) GetEnrollmentOptions(c *gin.Context) {
	userID := c.GetUint("user_id")

	var course courses.Course
	err := database.DB.Where("slug = ? AND status = ?", c.Param("slug"), courses.StatusPublished).
		First(&course).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load course"})
		return
	}

	opts, err := h.access.EnrollmentOptions(userID, &course)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute options"})
		return
	}
	c.JSON(http.StatusOK, opts)
}

type courseInput struct {
	Title          string   `json:"title" binding:"required"`
	Slug           string   `json:"slug"`
	Overview       string   `json:"overview"`
	PricingMode    string   `json:"pricing_mode" binding:"required"`
	Price          *float64 `json:"price"`
	Currency       string   `json:"currency"`
	EnrollmentType string   `json:"enrollment_type"`
	MaxCapacity    *int     `json:"max_capacity"`
	WaitlistOpen   bool     `json:"waitlist_enabled"`
}

// POST /courses (instructor)
func (h *Handler) CreateCourse(c *gin.Context) {
	var input courseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	slug := input.Slug
	if slug == "" {
		slug = courses.MakeSlug(input.Title)
	}

	course := courses.Course{
		OwnerID:         c.GetUint("user_id"),
		Title:           input.Title,
		Slug:            slug,
		Overview:        input.Overview,
		PricingMode:     courses.PricingMode(input.PricingMode),
		Price:           input.Price,
		Currency:        input.Currency,
		EnrollmentType:  input.EnrollmentType,
		MaxCapacity:     input.MaxCapacity,
		WaitlistEnabled: input.WaitlistOpen,
		Status:          courses.StatusDraft,
	}
	if course.Currency == "" {
		course.Currency = "IDR"
	}
	if course.EnrollmentType == "" {
		course.EnrollmentType = courses.EnrollmentOpen
	}
	if err := course.ValidatePricing(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := database.DB.Create(&course).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Slug may already be taken"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"course": course})
}

// PUT /courses/:slug (instructor, own course)
func (h *Handler) UpdateCourse(c *gin.Context) {
	course, ok := h.ownCourse(c)
	if !ok {
		return
	}

	var input courseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	course.Title = input.Title
	course.Overview = input.Overview
	course.PricingMode = courses.PricingMode(input.PricingMode)
	course.Price = input.Price
	if input.Currency != "" {
		course.Currency = input.Currency
	}
	if input.EnrollmentType != "" {
		course.EnrollmentType = input.EnrollmentType
	}
	course.MaxCapacity = input.MaxCapacity
	course.WaitlistEnabled = input.WaitlistOpen

	if err := course.ValidatePricing(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := database.DB.Save(course).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update course"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"course": course})
}

// POST /courses/:slug/publish (instructor, own course)
func (h *Handler) PublishCourse(c *gin.Context) {
	course, ok := h.ownCourse(c)
	if !ok {
		return
	}
	if course.Status == courses.StatusPublished {
		c.JSON(http.StatusOK, gin.H{"course": course})
		return
	}
	if err := course.ValidatePricing(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	now := time.Now()
	course.Status = courses.StatusPublished
	course.PublishedAt = &now
	if err := database.DB.Save(course).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to publish course"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"course": course})
}

// POST /courses/:slug/archive (instructor, own course)
func (h *Handler) ArchiveCourse(c *gin.Context) {
	course, ok := h.ownCourse(c)
	if !ok {
		return
	}
	course.Status = courses.StatusArchived
	if err := database.DB.Save(course).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to archive course"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"course": course})
}

type moduleInput struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Position    int    `json:"position"`
}

// POST /courses/:slug/modules (instructor, own course)
func (h *Handler) CreateModule(c *gin.Context) {
	course, ok := h.ownCourse(c)
	if !ok {
		return
	}
	var input moduleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	mod := courses.Module{
		CourseID:    course.ID,
		Title:       input.Title,
		Description: input.Description,
		Position:    input.Position,
	}
	if err := database.DB.Create(&mod).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create module"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"module": mod})
}

type contentInput struct {
	ModuleID uint   `json:"module_id" binding:"required"`
	Title    string `json:"title" binding:"required"`
	Position int    `json:"position"`
}

// POST /courses/:slug/contents (instructor, own course)
func (h *Handler) CreateContent(c *gin.Context) {
	course, ok := h.ownCourse(c)
	if !ok {
		return
	}

	var input contentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var mod courses.Module
	if err := database.DB.Where("id = ? AND course_id = ?", input.ModuleID, course.ID).
		First(&mod).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Module not found"})
		return
	}

	content := courses.Content{
		ModuleID: mod.ID,
		Title:    input.Title,
		Position: input.Position,
	}
	if err := database.DB.Create(&content).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create content"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"content": content})
}

func (h *Handler) ownCourse(c *gin.Context) (*courses.Course, bool) {
	var course courses.Course
	err := database.DB.Where("slug = ?", c.Param("slug")).First(&course).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load course"})
		return nil, false
	}
	if course.OwnerID != c.GetUint("user_id") && c.GetString("role") != "admin" {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not your course"})
		return nil, false
	}
	return &course, true
}
