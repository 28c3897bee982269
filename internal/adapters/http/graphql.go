package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/bilbomap/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to the search engine.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	latLngType := graphql.NewObject(graphql.ObjectConfig{
		Name: "LatLng",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lng": &graphql.Field{Type: graphql.Float},
		},
	})

	boundingBoxType := graphql.NewObject(graphql.ObjectConfig{
		Name: "BoundingBox",
		Fields: graphql.Fields{
			"northEast": &graphql.Field{Type: latLngType},
			"southWest": &graphql.Field{Type: latLngType},
			"value": &graphql.Field{
				Type:        graphql.String,
				Description: "neLat,neLng,swLat,swLng",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					box, _ := p.Source.(*domain.BoundingBox)
					if box == nil {
						return nil, nil
					}
					return box.String(), nil
				},
			},
		},
	})

	hitType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Hit",
		Fields: graphql.Fields{
			"objectID": &graphql.Field{Type: graphql.String},
			"name":     &graphql.Field{Type: graphql.String},
			"_geoloc":  &graphql.Field{Type: latLngType},
			"distance": &graphql.Field{Type: graphql.Float},
		},
	})

	resultsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "SearchResults",
		Fields: graphql.Fields{
			"hits":              &graphql.Field{Type: graphql.NewList(hitType)},
			"nbHits":            &graphql.Field{Type: graphql.Int},
			"page":              &graphql.Field{Type: graphql.Int},
			"hitsPerPage":       &graphql.Field{Type: graphql.Int},
			"insideBoundingBox": &graphql.Field{Type: boundingBoxType},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"geoSearch": &graphql.Field{
				Type:        resultsType,
				Description: "Search stops, optionally inside a bounding box or around a point",
				Args: graphql.FieldConfigArgument{
					"query":             &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"insideBoundingBox": &graphql.ArgumentConfig{Type: graphql.String},
					"aroundLatLng":      &graphql.ArgumentConfig{Type: graphql.String},
					"aroundRadius":      &graphql.ArgumentConfig{Type: graphql.Float},
					"page":              &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 1},
					"hitsPerPage":       &graphql.ArgumentConfig{Type: graphql.Int},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					state := domain.SearchState{Query: p.Args["query"].(string), Page: p.Args["page"].(int)}
					if raw, ok := p.Args["insideBoundingBox"].(string); ok && raw != "" {
						box, err := domain.ParseBoundingBox(raw)
						if err != nil {
							return nil, err
						}
						state.BoundingBox = &box
					}
					if raw, ok := p.Args["aroundLatLng"].(string); ok && raw != "" {
						pt, err := domain.ParseLatLng(raw)
						if err != nil {
							return nil, err
						}
						state.AroundLatLng = &pt
					}
					if r, ok := p.Args["aroundRadius"].(float64); ok {
						state.AroundRadius = r
					}
					if n, ok := p.Args["hitsPerPage"].(int); ok {
						state.HitsPerPage = n
					}
					return deps.Search.Search(p.Context, state)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
