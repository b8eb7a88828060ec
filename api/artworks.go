package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lawha/engine"
	"lawha/models"
)

type artworkSizeDTO struct {
	Label       string `json:"label"`
	PriceCents  int64  `json:"priceCents"`
	TotalCopies int    `json:"totalCopies"`
	Remaining   int    `json:"remaining"`
}

type artworkDTO struct {
	ID               uuid.UUID        `json:"id"`
	Slug             string           `json:"slug"`
	Title            string           `json:"title"`
	TitleAr          string           `json:"titleAr,omitempty"`
	ShortDescription string           `json:"shortDescription,omitempty"`
	Story            string           `json:"story,omitempty"`
	Images           []string         `json:"images"`
	Type             string           `json:"type"`
	Status           string           `json:"status"`
	AuctionStart     *time.Time       `json:"auctionStart,omitempty"`
	AuctionEnd       *time.Time       `json:"auctionEnd,omitempty"`
	CurrentBidCents  *int64           `json:"currentBidCents,omitempty"`
	Sizes            []artworkSizeDTO `json:"sizes"`
}

func toArtworkDTO(artwork *models.Artwork) artworkDTO {
	dto := artworkDTO{
		ID:               artwork.ID,
		Slug:             artwork.Slug,
		Title:            artwork.Title,
		TitleAr:          artwork.TitleAr,
		ShortDescription: artwork.ShortDescription,
		Story:            artwork.Story,
		Images:           artwork.Images,
		Type:             string(artwork.Type),
		Status:           string(artwork.Status),
		Sizes: lo.Map(artwork.Sizes, func(size models.ArtworkSize, _ int) artworkSizeDTO {
			return artworkSizeDTO{
				Label:       size.Label,
				PriceCents:  size.PriceCents,
				TotalCopies: size.TotalCopies,
				Remaining:   size.Remaining,
			}
		}),
	}
	if artwork.Images == nil {
		dto.Images = []string{}
	}
	if artwork.Type == models.ArtworkAuction {
		dto.AuctionStart = artwork.AuctionStart
		dto.AuctionEnd = artwork.AuctionEnd
		dto.CurrentBidCents = lo.ToPtr(artwork.CurrentBidCents)
	}
	return dto
}

// List published artworks
// (GET /artworks)
func (impl *ServerImpl) ListArtworks(c *gin.Context) {
	const op = "ListArtworks"
	var artworks []models.Artwork
	query := impl.db.WithContext(c.Request.Context()).
		Preload("Sizes").
		Order(clause.OrderByColumn{Column: clause.Column{Name: "created_at"}, Desc: true})
	if artworkType := c.Query("type"); artworkType != "" {
		query = query.Where("type = ?", artworkType)
	}
	if result := query.Find(&artworks); result.Error != nil {
		respondError(c, op, fmt.Errorf("[%s] Fail to list artworks, err=%w", op, result.Error))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"artworks": lo.Map(artworks, func(artwork models.Artwork, _ int) artworkDTO {
			return toArtworkDTO(&artwork)
		}),
	})
}

// Get a single artwork by its slug
// (GET /artworks/{slug})
func (impl *ServerImpl) GetArtworkBySlug(c *gin.Context) {
	const op = "GetArtworkBySlug"
	var artwork models.Artwork
	result := impl.db.WithContext(c.Request.Context()).
		Preload("Sizes").
		Where("slug = ?", c.Param("slug")).
		First(&artwork)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "NotFound", "message": "artwork not found"})
			return
		}
		respondError(c, op, fmt.Errorf("[%s] Fail to find artwork, err=%w", op, result.Error))
		return
	}
	c.JSON(http.StatusOK, toArtworkDTO(&artwork))
}

type artworkSizeRequest struct {
	Label       string `json:"label" binding:"required"`
	PriceCents  int64  `json:"priceCents" binding:"required"`
	TotalCopies int    `json:"totalCopies" binding:"required,min=1"`
}

type createArtworkRequest struct {
	Slug                 string               `json:"slug" binding:"required"`
	Title                string               `json:"title" binding:"required"`
	TitleAr              string               `json:"titleAr"`
	ShortDescription     string               `json:"shortDescription"`
	Story                string               `json:"story"`
	Images               []string             `json:"images"`
	Type                 string               `json:"type"`
	AuctionStart         *time.Time           `json:"auctionStart"`
	AuctionEnd           *time.Time           `json:"auctionEnd"`
	MinIncrementCents    int64                `json:"minIncrementCents"`
	MaterialCostCents    int64                `json:"materialCostCents"`
	PackagingCostCents   int64                `json:"packagingCostCents"`
	LaborCostCents       int64                `json:"laborCostCents"`
	MinProfitMarginCents int64                `json:"minProfitMarginCents"`
	Sizes                []artworkSizeRequest `json:"sizes"`
}

// Create a new artwork
// (POST /admin/artworks)
func (impl *ServerImpl) CreateArtwork(c *gin.Context) {
	const op = "CreateArtwork"
	var request createArtworkRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "BadRequest", "message": err.Error()})
		return
	}
	// 處理販售方式與預設值
	artworkType := models.ArtworkUnique
	switch models.ArtworkType(request.Type) {
	case "", models.ArtworkUnique:
	case models.ArtworkLimited:
		artworkType = models.ArtworkLimited
	case models.ArtworkAuction:
		artworkType = models.ArtworkAuction
		// 檢查拍賣時間是否合法
		if request.AuctionStart == nil || request.AuctionEnd == nil || !request.AuctionEnd.After(*request.AuctionStart) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "BadRequest", "message": "invalid auction window"})
			return
		}
		if request.MinIncrementCents <= 0 {
			request.MinIncrementCents = engine.DefaultMinIncrementCents
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "BadRequest", "message": "invalid artwork type"})
		return
	}
	if request.Images == nil {
		request.Images = []string{}
	}
	artwork := models.Artwork{
		Slug:                 request.Slug,
		Title:                request.Title,
		TitleAr:              request.TitleAr,
		ShortDescription:     impl.htmlChecker.Sanitize(request.ShortDescription),
		Story:                impl.htmlChecker.Sanitize(request.Story),
		Images:               request.Images,
		Type:                 artworkType,
		Status:               models.ArtworkAvailable,
		AuctionStart:         request.AuctionStart,
		AuctionEnd:           request.AuctionEnd,
		MinIncrementCents:    request.MinIncrementCents,
		MaterialCostCents:    request.MaterialCostCents,
		PackagingCostCents:   request.PackagingCostCents,
		LaborCostCents:       request.LaborCostCents,
		MinProfitMarginCents: request.MinProfitMarginCents,
	}
	// 畫作與尺寸在同一個交易中建立
	err := impl.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if result := tx.Create(&artwork); result.Error != nil {
			return result.Error
		}
		for _, size := range request.Sizes {
			record := models.ArtworkSize{
				ArtworkID:   artwork.ID,
				Label:       size.Label,
				PriceCents:  size.PriceCents,
				TotalCopies: size.TotalCopies,
				Remaining:   size.TotalCopies,
			}
			if result := tx.Create(&record); result.Error != nil {
				return result.Error
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "Conflict", "message": "slug already exists"})
			return
		}
		respondError(c, op, fmt.Errorf("[%s] Fail to create artwork, err=%w", op, err))
		return
	}
	impl.recordAudit(c, "create_artwork", "artwork", &artwork.ID, map[string]any{"slug": artwork.Slug})
	c.Header("Location", artwork.ID.String())
	c.JSON(http.StatusCreated, gin.H{"id": artwork.ID})
}

type updateArtworkRequest struct {
	Title                *string  `json:"title"`
	TitleAr              *string  `json:"titleAr"`
	ShortDescription     *string  `json:"shortDescription"`
	Story                *string  `json:"story"`
	Images               []string `json:"images"`
	Status               *string  `json:"status"`
	MinProfitMarginCents *int64   `json:"minProfitMarginCents"`
}

// Update artwork display fields and status
// (PATCH /admin/artworks/{id})
func (impl *ServerImpl) UpdateArtwork(c *gin.Context) {
	const op = "UpdateArtwork"
	artworkID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "BadRequest", "message": "invalid artwork id"})
		return
	}
	var request updateArtworkRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "BadRequest", "message": err.Error()})
		return
	}
	updates := map[string]any{}
	if request.Title != nil {
		updates["title"] = *request.Title
	}
	if request.TitleAr != nil {
		updates["title_ar"] = *request.TitleAr
	}
	if request.ShortDescription != nil {
		updates["short_description"] = impl.htmlChecker.Sanitize(*request.ShortDescription)
	}
	if request.Story != nil {
		updates["story"] = impl.htmlChecker.Sanitize(*request.Story)
	}
	if request.Images != nil {
		updates["images"] = request.Images
	}
	if request.MinProfitMarginCents != nil {
		updates["min_profit_margin_cents"] = *request.MinProfitMarginCents
	}
	if request.Status != nil {
		// 結標狀態由結標流程維護，不開放直接修改
		switch models.ArtworkStatus(*request.Status) {
		case models.ArtworkAvailable, models.ArtworkComingSoon, models.ArtworkSold:
			updates["status"] = *request.Status
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "BadRequest", "message": "invalid status"})
			return
		}
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "BadRequest", "message": "no fields to update"})
		return
	}
	result := impl.db.WithContext(c.Request.Context()).
		Model(&models.Artwork{}).
		Where("id = ?", artworkID).
		Updates(updates)
	if result.Error != nil {
		respondError(c, op, fmt.Errorf("[%s] Fail to update artwork, err=%w", op, result.Error))
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "NotFound", "message": "artwork not found"})
		return
	}
	impl.recordAudit(c, "update_artwork", "artwork", &artworkID, updates)
	c.JSON(http.StatusOK, gin.H{"id": artworkID})
}
