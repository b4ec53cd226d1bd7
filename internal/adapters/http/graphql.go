package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/Mica14-AgCode/VISU/internal/core/domain"
	"github.com/Mica14-AgCode/VISU/internal/core/usecases"
)

// buildSchema creates the GraphQL schema wired to the field service.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	coordinateType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Coordinate",
		Fields: graphql.Fields{
			"lon": &graphql.Field{Type: graphql.Float},
			"lat": &graphql.Field{Type: graphql.Float},
		},
	})

	provenanceType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Provenance",
		Fields: graphql.Fields{
			"kind":         &graphql.Field{Type: graphql.String},
			"archiveName":  &graphql.Field{Type: graphql.String},
			"documentName": &graphql.Field{Type: graphql.String},
			"registryId":   &graphql.Field{Type: graphql.String},
			"taxId":        &graphql.Field{Type: graphql.String},
		},
	})

	fieldType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Field",
		Fields: graphql.Fields{
			"sourceId":             &graphql.Field{Type: graphql.String},
			"label":                &graphql.Field{Type: graphql.String},
			"ownerName":            &graphql.Field{Type: graphql.String},
			"locality":             &graphql.Field{Type: graphql.String},
			"declaredAreaHectares": &graphql.Field{Type: graphql.Float},
			"computedAreaHectares": &graphql.Field{Type: graphql.Float},
			"perimeterMeters":      &graphql.Field{Type: graphql.Float},
			"geohash":              &graphql.Field{Type: graphql.String},
			"centroid":             &graphql.Field{Type: coordinateType},
			"ring": &graphql.Field{
				Type:        graphql.NewList(graphql.NewList(graphql.Float)),
				Description: "Closed ring as [lon, lat] pairs",
			},
			"provenance": &graphql.Field{Type: provenanceType},
		},
	})

	summaryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ExtractionSummary",
		Fields: graphql.Fields{
			"batchId":    &graphql.Field{Type: graphql.String},
			"source":     &graphql.Field{Type: graphql.String},
			"origin":     &graphql.Field{Type: graphql.String},
			"inputs":     &graphql.Field{Type: graphql.Int},
			"accepted":   &graphql.Field{Type: graphql.Int},
			"rejected":   &graphql.Field{Type: graphql.Int},
			"pages":      &graphql.Field{Type: graphql.Int},
			"pagination": &graphql.Field{Type: graphql.String},
			"warnings":   &graphql.Field{Type: graphql.NewList(graphql.String)},
		},
	})

	extractionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Extraction",
		Fields: graphql.Fields{
			"summary": &graphql.Field{Type: summaryType},
			"fields":  &graphql.Field{Type: graphql.NewList(fieldType)},
		},
	})

	recordType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RegistryRecord",
		Fields: graphql.Fields{
			"id":                   &graphql.Field{Type: graphql.String},
			"ownerName":            &graphql.Field{Type: graphql.String},
			"locality":             &graphql.Field{Type: graphql.String},
			"declaredAreaHectares": &graphql.Field{Type: graphql.Float},
			"active":               &graphql.Field{Type: graphql.Boolean},
			"field":                &graphql.Field{Type: fieldType},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"fieldsByTaxId": &graphql.Field{
				Type:        extractionType,
				Description: "Extract the fields registered to a CUIT (NN-NNNNNNNN-N)",
				Args: graphql.FieldConfigArgument{
					"taxId":           &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"includeInactive": &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: false},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					taxID, _ := p.Args["taxId"].(string)
					all, _ := p.Args["includeInactive"].(bool)
					res, err := deps.Fields.FieldsByTaxID(p.Context, taxID, usecases.RegistryOptions{IncludeInactive: all})
					if err != nil {
						return nil, err
					}
					return extractionToGraph(res), nil
				},
			},
			"registryRecord": &graphql.Field{
				Type:        recordType,
				Description: "Look up one RENSPA record by number",
				Args: graphql.FieldConfigArgument{
					"number": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					number, _ := p.Args["number"].(string)
					view, err := deps.Fields.RecordByNumber(p.Context, number)
					if err != nil {
						return nil, err
					}
					rec := map[string]interface{}{
						"id":                   view.Record.ID,
						"ownerName":            view.Record.OwnerName,
						"locality":             view.Record.Locality,
						"declaredAreaHectares": view.Record.DeclaredAreaHectares,
						"active":               view.Record.Active,
					}
					if view.Field != nil {
						rec["field"] = fieldToGraph(*view.Field)
					}
					return rec, nil
				},
			},
			"normalizeTaxId": &graphql.Field{
				Type:        graphql.String,
				Description: "Format a CUIT given with or without separators",
				Args: graphql.FieldConfigArgument{
					"taxId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					raw, _ := p.Args["taxId"].(string)
					return domain.NormalizeTaxID(raw)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// The schema resolves from plain maps so that value types such as
// domain.Ring need no reflection support in graphql-go.

func extractionToGraph(res *domain.ExtractionResult) map[string]interface{} {
	fields := make([]interface{}, 0, len(res.Fields))
	for _, f := range res.Fields {
		fields = append(fields, fieldToGraph(f))
	}
	s := res.Summary
	return map[string]interface{}{
		"summary": map[string]interface{}{
			"batchId":    s.BatchID,
			"source":     string(s.Source),
			"origin":     s.Origin,
			"inputs":     s.Inputs,
			"accepted":   s.Accepted,
			"rejected":   s.Rejected,
			"pages":      s.Pages,
			"pagination": string(s.Pagination),
			"warnings":   s.Warnings,
		},
		"fields": fields,
	}
}

func fieldToGraph(f domain.Field) map[string]interface{} {
	ring := make([]interface{}, 0, f.Ring.Len())
	for _, c := range f.Ring.Coordinates() {
		ring = append(ring, []interface{}{c.Lon, c.Lat})
	}
	var centroid interface{}
	if f.Centroid != nil {
		centroid = map[string]interface{}{"lon": f.Centroid.Lon, "lat": f.Centroid.Lat}
	}
	return map[string]interface{}{
		"sourceId":             f.SourceID,
		"label":                f.Label,
		"ownerName":            f.OwnerName,
		"locality":             f.Locality,
		"declaredAreaHectares": f.DeclaredAreaHectares,
		"computedAreaHectares": f.ComputedAreaHectares,
		"perimeterMeters":      f.PerimeterMeters,
		"geohash":              f.Geohash,
		"centroid":             centroid,
		"ring":                 ring,
		"provenance": map[string]interface{}{
			"kind":         string(f.Provenance.Kind),
			"archiveName":  f.Provenance.ArchiveName,
			"documentName": f.Provenance.DocumentName,
			"registryId":   f.Provenance.RegistryID,
			"taxId":        f.Provenance.TaxID,
		},
	}
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
