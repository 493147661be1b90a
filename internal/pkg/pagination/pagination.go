package pagination

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/soundscape/server/internal/pkg/response"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DefaultPage = 1
	DefaultSize = 20
	MaxSize     = 100
)

// Query holds parsed pagination parameters.
type Query struct {
	Page int
	Size int
}

// Skip returns the number of documents before the requested page.
func (q Query) Skip() int64 { return int64((q.Page - 1) * q.Size) }

// FromContext extracts and validates pagination params from the request.
func FromContext(c *gin.Context) Query {
	page := parseIntOr(c.DefaultQuery("page", "1"), DefaultPage)
	size := parseIntOr(c.DefaultQuery("size", strconv.Itoa(DefaultSize)), DefaultSize)
	return Normalize(page, size)
}

// Normalize clamps page and size into their accepted ranges.
func Normalize(page, size int) Query {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}
	return Query{Page: page, Size: size}
}

// Meta builds the pagination metadata for a total document count.
func Meta(q Query, total int64) response.Pagination {
	totalPage := int((total + int64(q.Size) - 1) / int64(q.Size))
	return response.Pagination{
		Total:       total,
		CurrentPage: q.Page,
		TotalPage:   totalPage,
		Size:        q.Size,
		HasNextPage: q.Page < totalPage,
	}
}

// Paginate counts the filter, applies skip/limit to the find and decodes the page into dest.
// sort may be nil.
func Paginate[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, sort interface{}, q Query, dest *[]T) (response.Pagination, error) {
	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return response.Pagination{}, err
	}

	opts := options.Find().SetSkip(q.Skip()).SetLimit(int64(q.Size))
	if sort != nil {
		opts.SetSort(sort)
	}
	cur, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return response.Pagination{}, err
	}
	items := make([]T, 0, q.Size)
	if err := cur.All(ctx, &items); err != nil {
		return response.Pagination{}, err
	}
	*dest = items

	return Meta(q, total), nil
}

func parseIntOr(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
