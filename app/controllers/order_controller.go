package controllers

import (
	"github.com/teastall/teastall/app/models"
	"github.com/teastall/teastall/app/services"
	"github.com/teastall/teastall/pkg/ctx"
)

type OrderController struct {
	orders *services.OrderService
}

func NewOrderController(orders *services.OrderService) *OrderController {
	return &OrderController{orders: orders}
}

type lineItemRequest struct {
	ProductID string  `json:"productId" validate:"nullable,hex24"`
	Name      string  `json:"name" validate:"required,max=120"`
	UnitPrice float64 `json:"unitPrice" validate:"gte=0"`
	Quantity  int     `json:"quantity" validate:"gte=1"`
}

type createOrderRequest struct {
	Items         []lineItemRequest `json:"items" validate:"required,min=1,dive"`
	TotalAmount   float64           `json:"totalAmount" validate:"gte=0"`
	PaymentMethod string            `json:"paymentMethod" validate:"required,max=40"`
}

type updateOrderRequest struct {
	Status        *string `json:"status" validate:"nullable,in=pending,paid,preparing,ready,completed,cancelled"`
	PaymentStatus *string `json:"paymentStatus" validate:"nullable,in=pending,submitted,completed,failed"`
	AdminReason   *string `json:"adminReason" validate:"nullable,max=500"`
}

type updatePaymentRequest struct {
	PaymentStatus string `json:"paymentStatus" validate:"required,in=pending,submitted,completed,failed"`
}

// Store places an order for the caller. POST /api/orders
func (oc *OrderController) Store(c *ctx.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req createOrderRequest
	if !c.BindJSON(&req) {
		return
	}

	items := make([]models.LineItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = models.LineItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
		}
	}

	order, err := oc.orders.Create(c.Context(), id.UserID, services.NewOrder{
		Items:         items,
		TotalAmount:   req.TotalAmount,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.Created(order)
}

// Index lists every order, newest first. GET /api/orders
func (oc *OrderController) Index(c *ctx.Context) {
	orders, err := oc.orders.List(c.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(orders)
}

// Mine lists the caller's orders. GET /api/orders/user
func (oc *OrderController) Mine(c *ctx.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	orders, err := oc.orders.ListForUser(c.Context(), id.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(orders)
}

// Show is the point read clients poll. GET /api/orders/{id}
func (oc *OrderController) Show(c *ctx.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	order, err := oc.orders.GetFor(c.Context(), id, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(order)
}

// Update applies an admin change. PATCH /api/orders/{id}
func (oc *OrderController) Update(c *ctx.Context) {
	var req updateOrderRequest
	if !c.BindJSON(&req) {
		return
	}
	order, err := oc.orders.Update(c.Context(), c.Param("id"), services.OrderChange{
		Status:        req.Status,
		PaymentStatus: req.PaymentStatus,
		AdminReason:   req.AdminReason,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(order)
}

// UpdatePayment records a payment decision. PATCH /api/orders/{id}/payment
func (oc *OrderController) UpdatePayment(c *ctx.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req updatePaymentRequest
	if !c.BindJSON(&req) {
		return
	}
	order, err := oc.orders.UpdatePayment(c.Context(), id, c.Param("id"), req.PaymentStatus)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(order)
}
