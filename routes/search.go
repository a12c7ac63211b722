package routes

import (
	"strings"

	"shortlet-server/services"
	"shortlet-server/utils"

	"github.com/kataras/iris/v12"
)

// SearchListings handles listing discovery with cursor pagination. The
// pager silently degrades to an unindexed scan when the store is
// missing a composite index; that case carries a soft notice, every
// other query error is a hard, retryable failure.
func SearchListings(ctx iris.Context) {
	req := services.SearchRequest{
		Query:  strings.TrimSpace(ctx.URLParam("q")),
		City:   strings.TrimSpace(ctx.URLParam("city")),
		Cursor: ctx.URLParam("cursor"),
	}
	if minPrice, err := ctx.URLParamFloat64("minPrice"); err == nil && minPrice > 0 {
		req.MinPrice = minPrice
	}
	if maxPrice, err := ctx.URLParamFloat64("maxPrice"); err == nil && maxPrice > 0 {
		req.MaxPrice = maxPrice
	}

	pager := services.NewListingSearchPager()
	page, err := pager.Search(ctx.Request().Context(), req)
	if err != nil {
		utils.JSONError(ctx, iris.StatusServiceUnavailable, "search_failed",
			"Could not load listings. Check your connection and try again.")
		return
	}

	ctx.JSON(page)
}
