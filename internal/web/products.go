package web

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/talkincode/storefront/internal/domain"
	"github.com/talkincode/storefront/internal/form"
	"github.com/talkincode/storefront/internal/listview"
	"github.com/talkincode/storefront/internal/validate"
	"go.uber.org/zap"
)

func (h *Handler) productFormPage(c echo.Context) error {
	p := h.newPage(c, "Submit Product")
	p.Form = viewOf(form.New(validate.ProductSchema))
	p.Categories = domain.ProductCategories
	p.Pending = h.guard.Pending(clientID(c) + ":product")
	return h.render(c, http.StatusOK, "product_form", p)
}

func (h *Handler) productSubmit(c echo.Context) error {
	p := h.newPage(c, "Submit Product")
	p.Categories = domain.ProductCategories

	req := c.Request()
	req.Body = http.MaxBytesReader(c.Response(), req.Body, h.maxUpload+1<<20)
	if err := req.ParseMultipartForm(h.maxUpload); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		p.Form = viewOf(form.New(validate.ProductSchema))
		return h.render(c, http.StatusBadRequest, "product_form", p.addError("Failed to submit product"))
	}

	ctrl := form.Bind(validate.ProductSchema, req)
	adapter := h.adapter(c)

	var res form.Result
	err := h.guard.Run(clientID(c)+":product", func() error {
		res = ctrl.Submit(req.Context(), func(ctx context.Context, ctrl *form.Controller) error {
			imageURL, err := h.encoder.DataURI(ctx, ctrl.File("productImage"))
			if err != nil {
				return err
			}
			_, err = adapter.CreateProduct(ctx, domain.Product{
				ProductName: ctrl.TrimmedValue("productName"),
				Description: ctrl.TrimmedValue("description"),
				Price:       ctrl.TrimmedValue("price"),
				Category:    ctrl.TrimmedValue("category"),
				ImageURL:    imageURL,
			})
			if err != nil {
				return err
			}
			return sleepCtx(ctx, h.submitDelay)
		})
		return nil
	})

	p.Form = viewOf(ctrl)
	if errors.Is(err, form.ErrPending) {
		p.Pending = true
		return h.render(c, http.StatusConflict, "product_form", p.addError("Submitting product..."))
	}
	switch {
	case res.Invalid():
		return h.render(c, http.StatusUnprocessableEntity, "product_form", p)
	case res.Failed():
		zap.L().Error("product submit failed", zap.String("client", clientID(c)), zap.Error(res.Err))
		return h.render(c, http.StatusOK, "product_form", p.addError("Failed to submit product"))
	}
	return redirectWithFlash(c, "/product/form", "Product submitted successfully!")
}

// loadProducts fetches the collection. A failed fetch is reported on the
// page and shown as an empty table, never confused with "no products".
func (h *Handler) loadProducts(c echo.Context, p *Page) *listview.List[domain.Product] {
	adapter := h.adapter(c)
	p.CanDelete = adapter.SupportsDelete()
	records, err := adapter.ListProducts(c.Request().Context())
	if err != nil {
		zap.L().Error("list products failed", zap.String("client", clientID(c)), zap.Error(err))
		p.LoadError = "Failed to load products"
	}
	return listview.Products(records, p.Query)
}

func (h *Handler) productList(c echo.Context) error {
	p := h.newPage(c, "All Products")
	p.Query = c.QueryParam("q")
	p.Products = h.loadProducts(c, p).Visible()
	return h.render(c, http.StatusOK, "product_list", p)
}

// productDelete removes the product on the backend and renders the held
// collection without the deleted row
func (h *Handler) productDelete(c echo.Context) error {
	p := h.newPage(c, "All Products")
	p.Query = c.FormValue("q")
	list := h.loadProducts(c, p)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		p.Products = list.Visible()
		return h.render(c, http.StatusBadRequest, "product_list", p.addError("Invalid product ID"))
	}
	if p.LoadError == "" {
		err = list.Delete(c.Request().Context(), id, h.adapter(c).DeleteProduct)
	}
	p.Products = list.Visible()
	if err != nil {
		zap.L().Error("delete product failed", zap.Int64("id", id), zap.Error(err))
		return h.render(c, http.StatusOK, "product_list", p.addError("Failed to delete product"))
	}
	if p.LoadError == "" {
		p.Success = append(p.Success, "Product deleted")
	}
	return h.render(c, http.StatusOK, "product_list", p)
}

func (h *Handler) productExport(c echo.Context) error {
	records, err := h.adapter(c).ListProducts(c.Request().Context())
	if err != nil {
		zap.L().Error("export products failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadGateway, "Failed to load products")
	}
	c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="products.csv"`)
	c.Response().WriteHeader(http.StatusOK)
	return listview.Products(records, c.QueryParam("q")).WriteCSV(c.Response())
}
