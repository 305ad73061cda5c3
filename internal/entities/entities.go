// Package entities declares the content tables of the site. Every table
// has a serial int64 id plus created_at/updated_at maintained by the
// store; the columns listed here are the caller-writable surface.
package entities

import "github.com/enervolt/enervolt-backend/internal/db"

var ServiceSchema = &db.Schema{
	Table: "services",
	Columns: []string{
		"name", "slug", "summary", "description", "category",
		"icon", "featured", "published",
	},
	Required: []string{"name"},
}

var ProductSchema = &db.Schema{
	Table: "products",
	Columns: []string{
		"name", "slug", "summary", "description", "category",
		"price", "image_url", "in_stock", "published",
	},
	Required: []string{"name", "price"},
}

var PostSchema = &db.Schema{
	Table: "posts",
	Columns: []string{
		"title", "slug", "excerpt", "body", "author",
		"cover_url", "tags", "published",
	},
	Required: []string{"title", "body"},
}

var TestimonialSchema = &db.Schema{
	Table: "testimonials",
	Columns: []string{
		"author", "company", "quote", "rating", "published",
	},
	Required: []string{"author", "quote"},
}

var QuoteSchema = &db.Schema{
	Table: "quotes",
	Columns: []string{
		"reference", "name", "email", "phone", "company",
		"message", "items", "total", "status",
	},
	Required: []string{"name", "email"},
}

var ContactSchema = &db.Schema{
	Table: "contacts",
	Columns: []string{
		"name", "email", "phone", "subject", "message", "handled",
	},
	Required: []string{"name", "email", "message"},
}

// All lists every content schema, in the order the admin API mounts them.
func All() []*db.Schema {
	return []*db.Schema{
		ServiceSchema,
		ProductSchema,
		PostSchema,
		TestimonialSchema,
		QuoteSchema,
		ContactSchema,
	}
}
