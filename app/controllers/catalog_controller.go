package controllers

import (
	"github.com/teastall/teastall/app/models"
	"github.com/teastall/teastall/app/services"
	"github.com/teastall/teastall/pkg/ctx"
)

type ProductController struct {
	products *services.ProductService
}

func NewProductController(products *services.ProductService) *ProductController {
	return &ProductController{products: products}
}

type productRequest struct {
	Name        string  `json:"name" validate:"required,max=120"`
	Price       float64 `json:"price" validate:"gte=0"`
	Description string  `json:"description" validate:"max=2000"`
	CategoryID  string  `json:"categoryId" validate:"nullable,hex24"`
	Image       string  `json:"image" validate:"nullable,max=500"`
	Stock       int     `json:"stock" validate:"gte=0"`
	Featured    bool    `json:"featured"`
}

type productPatch struct {
	Name        *string  `json:"name" validate:"nullable,max=120"`
	Price       *float64 `json:"price" validate:"nullable,gte=0"`
	Description *string  `json:"description" validate:"nullable,max=2000"`
	CategoryID  *string  `json:"categoryId" validate:"nullable,hex24"`
	Image       *string  `json:"image" validate:"nullable,max=500"`
	Stock       *int     `json:"stock" validate:"nullable,gte=0"`
	Featured    *bool    `json:"featured"`
}

// GET /api/products
func (pc *ProductController) Index(c *ctx.Context) {
	products, err := pc.products.List(c.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(products)
}

// GET /api/products/featured
func (pc *ProductController) Featured(c *ctx.Context) {
	products, err := pc.products.Featured(c.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(products)
}

// GET /api/products/{id}
func (pc *ProductController) Show(c *ctx.Context) {
	p, err := pc.products.Get(c.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(p)
}

// POST /api/products
func (pc *ProductController) Store(c *ctx.Context) {
	var req productRequest
	if !c.BindJSON(&req) {
		return
	}
	p := &models.Product{
		Name:        req.Name,
		Price:       req.Price,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		Image:       req.Image,
		Stock:       req.Stock,
		Featured:    req.Featured,
	}
	if err := pc.products.Create(c.Context(), p); err != nil {
		fail(c, err)
		return
	}
	c.Created(p)
}

// PUT /api/products/{id}
func (pc *ProductController) Update(c *ctx.Context) {
	var req productPatch
	if !c.BindJSON(&req) {
		return
	}
	p, err := pc.products.Update(c.Context(), c.Param("id"), models.ProductUpdate{
		Name:        req.Name,
		Price:       req.Price,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		Image:       req.Image,
		Stock:       req.Stock,
		Featured:    req.Featured,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(p)
}

// DELETE /api/products/{id}
func (pc *ProductController) Destroy(c *ctx.Context) {
	if err := pc.products.Delete(c.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Success(map[string]bool{"deleted": true})
}

type CategoryController struct {
	categories *services.CategoryService
}

func NewCategoryController(categories *services.CategoryService) *CategoryController {
	return &CategoryController{categories: categories}
}

type categoryRequest struct {
	Name        string `json:"name" validate:"required,max=80"`
	Description string `json:"description" validate:"max=500"`
}

func (cc *CategoryController) Index(c *ctx.Context) {
	categories, err := cc.categories.List(c.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(categories)
}

func (cc *CategoryController) Store(c *ctx.Context) {
	var req categoryRequest
	if !c.BindJSON(&req) {
		return
	}
	cat := &models.Category{Name: req.Name, Description: req.Description}
	if err := cc.categories.Create(c.Context(), cat); err != nil {
		fail(c, err)
		return
	}
	c.Created(cat)
}

func (cc *CategoryController) Destroy(c *ctx.Context) {
	if err := cc.categories.Delete(c.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Success(map[string]bool{"deleted": true})
}

type ReviewController struct {
	reviews *services.ReviewService
}

func NewReviewController(reviews *services.ReviewService) *ReviewController {
	return &ReviewController{reviews: reviews}
}

type reviewRequest struct {
	ProductID string `json:"productId" validate:"nullable,hex24"`
	Rating    int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment   string `json:"comment" validate:"max=1000"`
}

// GET /api/reviews
func (rc *ReviewController) Index(c *ctx.Context) {
	reviews, err := rc.reviews.List(c.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(reviews)
}

// POST /api/reviews
func (rc *ReviewController) Store(c *ctx.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req reviewRequest
	if !c.BindJSON(&req) {
		return
	}
	r := &models.Review{ProductID: req.ProductID, Rating: req.Rating, Comment: req.Comment}
	if err := rc.reviews.Create(c.Context(), id.UserID, r); err != nil {
		fail(c, err)
		return
	}
	c.Created(r)
}
