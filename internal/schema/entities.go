package schema

import (
	"strings"

	"github.com/totegamma/gamecatalog/internal/domain"
)

func nameField(rules string) Field {
	return Field{
		Name:      "name",
		Kind:      String,
		Required:  true,
		Rules:     rules,
		Transform: domain.Capitalize,
	}
}

var descriptionField = Field{Name: "description", Kind: String, Rules: "max=2000"}

var Teams = Entity{
	Name:     "teams",
	Singular: "team",
	Fields: []Field{
		nameField("min=1,max=100"),
		descriptionField,
		{Name: "achievements", Kind: StringList, Rules: "max=100,dive,min=1,max=200"},
		{Name: "games", Kind: StringList, Rules: "max=100,dive,min=1,max=200"},
	},
}

var Videogames = Entity{
	Name:     "videogames",
	Singular: "videogame",
	Fields: []Field{
		nameField("min=1,max=150"),
		descriptionField,
		{Name: "genre", Kind: String, Rules: "oneof=action adventure rpg strategy shooter sports puzzle simulation racing fighting platformer horror"},
		{Name: "platforms", Kind: StringList, Rules: "max=20,dive,min=1,max=50"},
		{Name: "releaseYear", Kind: Integer, Rules: "min=1950,max=2100"},
		{Name: "developer", Kind: String, Rules: "max=150"},
		{Name: "rating", Kind: Number, Rules: "min=0,max=10"},
	},
}

var Developers = Entity{
	Name:     "developers",
	Singular: "developer",
	Fields: []Field{
		nameField("min=1,max=150"),
		descriptionField,
		{Name: "country", Kind: String, Rules: "max=100"},
		{Name: "foundedYear", Kind: Integer, Rules: "min=1900,max=2100"},
		{Name: "website", Kind: String, Rules: "omitempty,url"},
		{Name: "games", Kind: StringList, Rules: "max=500,dive,min=1,max=200"},
	},
}

var DLCs = Entity{
	Name:     "dlcs",
	Singular: "dlc",
	Fields: []Field{
		nameField("min=1,max=150"),
		descriptionField,
		{Name: "videogame", Kind: String, Required: true, Rules: "min=1,max=150"},
		{Name: "releaseYear", Kind: Integer, Rules: "min=1950,max=2100"},
		{Name: "price", Kind: Number, Rules: "min=0"},
	},
}

var Roles = Entity{
	Name:     "roles",
	Singular: "role",
	Fields: []Field{
		nameField("min=1,max=50"),
		descriptionField,
		{Name: "permissions", Kind: StringList, Rules: "unique,dive,oneof=read write delete admin"},
	},
}

var Users = Entity{
	Name:     "users",
	Singular: "user",
	Fields: []Field{
		nameField("min=3,max=50"),
		{Name: "email", Kind: String, Required: true, Rules: "email", Transform: strings.ToLower},
		{Name: "password", Kind: String, Required: true, Rules: "min=8,max=72,maxbytes=72", Sensitive: true},
		{Name: "role", Kind: String, Rules: "max=50"},
		{Name: "favoriteGames", Kind: StringList, Rules: "max=100,dive,min=1,max=200"},
		{Name: "active", Kind: Boolean},
	},
}

// Catalog lists every resource type served by the API, in mount order.
func Catalog() []Entity {
	return []Entity{Videogames, Users, Developers, Teams, DLCs, Roles}
}
