package mongostore

import (
	"regexp"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/query"
)

// ProductFilter builds the conjunctive filter for a catalog query. Search
// text is quoted so regex metacharacters match literally.
func ProductFilter(q query.Products) bson.M {
	f := bson.M{}
	if q.Search != "" {
		f["title"] = bson.M{"$regex": regexp.QuoteMeta(q.Search), "$options": "i"}
	}
	if q.Category != "" {
		f["category"] = q.Category
	}
	price := bson.M{}
	if q.MinPrice != nil {
		price["$gte"] = toDecimal128(*q.MinPrice)
	}
	if q.MaxPrice != nil {
		price["$lte"] = toDecimal128(*q.MaxPrice)
	}
	if len(price) > 0 {
		f["price"] = price
	}
	return f
}

func OrderFilter(q query.Orders) bson.M {
	f := bson.M{}
	if q.Status != "" {
		f["status"] = q.Status
	}
	if q.UserID != "" {
		f["userId"] = q.UserID
	}
	return f
}

// SortDoc passes the field through unchanged and breaks ties on _id.
func SortDoc(s query.Sort) bson.D {
	dir := 1
	if s.Desc {
		dir = -1
	}
	field := s.Field
	if field == "" {
		field = query.DefaultSort.Field
	}
	if field == "id" || field == "_id" {
		return bson.D{{Key: "_id", Value: dir}}
	}
	return bson.D{{Key: field, Value: dir}, {Key: "_id", Value: dir}}
}

func toDecimal128(d decimal.Decimal) primitive.Decimal128 {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.NewDecimal128(0, 0)
	}
	return v
}

func fromDecimal128(v primitive.Decimal128) decimal.Decimal {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}
