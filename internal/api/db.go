package api

import (
	"context"
	"database/sql"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-carto/internal/db"
	"github.com/joeblew999/plat-carto/pkg/source"
)

// DBHandler handles database-related endpoints.
type DBHandler struct {
	db *sql.DB
}

// NewDBHandler creates a new database handler.
func NewDBHandler(conn *sql.DB) *DBHandler {
	return &DBHandler{db: conn}
}

// RegisterRoutes registers database routes with Huma.
func (h *DBHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/tables", h.ListTables, huma.OperationTags("db"))
	huma.Post(api, "/api/v1/query", h.Query, huma.OperationTags("db"))
	huma.Post(api, "/api/v1/query/geojson", h.QueryGeoJSON, huma.OperationTags("db"))
	huma.Get(api, "/api/v1/tables/{name}/geojson", h.TableGeoJSON, huma.OperationTags("db"))
}

// TablesOutput is the response for listing tables.
type TablesOutput struct {
	Body struct {
		Tables []string `json:"tables" doc:"List of table names"`
	}
}

// ListTables returns all DuckDB tables.
func (h *DBHandler) ListTables(ctx context.Context, input *struct{}) (*TablesOutput, error) {
	if h.db == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}

	rows, err := h.db.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list tables", err)
	}
	defer rows.Close()

	out := &TablesOutput{}
	out.Body.Tables = []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err == nil {
			out.Body.Tables = append(out.Body.Tables, name)
		}
	}
	return out, nil
}

// QueryInput is the input for SQL queries.
type QueryInput struct {
	Body struct {
		Query string `json:"query" required:"true" minLength:"1" doc:"SQL query to execute"`
	}
}

// QueryOutput is the response for SQL queries.
type QueryOutput struct {
	Body struct {
		Columns []string         `json:"columns" doc:"Column names"`
		Rows    []map[string]any `json:"rows" doc:"Query results"`
		Count   int              `json:"count" doc:"Number of rows returned"`
	}
}

// Query executes a SQL query against DuckDB.
func (h *DBHandler) Query(ctx context.Context, input *QueryInput) (*QueryOutput, error) {
	if h.db == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}

	rows, err := h.db.QueryContext(ctx, input.Body.Query)
	if err != nil {
		return nil, huma.Error400BadRequest("Query failed: " + err.Error())
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to get columns", err)
	}

	out := &QueryOutput{}
	out.Body.Columns = columns
	out.Body.Rows = []map[string]any{}
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			continue
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		out.Body.Rows = append(out.Body.Rows, row)
	}
	out.Body.Count = len(out.Body.Rows)
	return out, nil
}

// GeoJSONQueryInput is the input for geometry queries.
type GeoJSONQueryInput struct {
	Body struct {
		Query          string `json:"query" required:"true" minLength:"1" doc:"SQL query with a WKB or WKT geometry column"`
		GeometryColumn string `json:"geometryColumn,omitempty" doc:"Geometry column name" example:"geom"`
	}
}

// GeoJSONOutput is a GeoJSON FeatureCollection.
type GeoJSONOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

// QueryGeoJSON runs a geometry query and returns it as GeoJSON, the same rows
// a map with a query source draws. Rows without geometry are omitted.
func (h *DBHandler) QueryGeoJSON(ctx context.Context, input *GeoJSONQueryInput) (*GeoJSONOutput, error) {
	if h.db == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}

	c, err := db.LoadCollection(ctx, h.db, input.Body.Query, input.Body.GeometryColumn)
	if err != nil {
		return nil, huma.Error400BadRequest("Query failed: " + err.Error())
	}
	return geoJSON(c)
}

// TableInput names a table with a spatial geometry column.
type TableInput struct {
	Name     string `path:"name" doc:"Table name" example:"communes"`
	Geometry string `query:"geom" doc:"GEOMETRY column; defaults to geom" example:"geom"`
}

// TableGeoJSON returns a whole table as GeoJSON, converting its GEOMETRY
// column with the spatial extension.
func (h *DBHandler) TableGeoJSON(ctx context.Context, input *TableInput) (*GeoJSONOutput, error) {
	if h.db == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}

	query := db.GeometryQuery(input.Name, input.Geometry)
	c, err := db.LoadCollection(ctx, h.db, query, input.Geometry)
	if err != nil {
		return nil, huma.Error400BadRequest("Query failed: " + err.Error())
	}
	return geoJSON(c)
}

func geoJSON(c *source.Collection) (*GeoJSONOutput, error) {
	fc := geojson.NewFeatureCollection()
	for _, f := range c.Features {
		if f.Geometry == nil {
			continue
		}
		gf := geojson.NewFeature(f.Geometry)
		gf.Properties = geojson.Properties(f.Properties)
		fc.Append(gf)
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to encode GeoJSON", err)
	}
	return &GeoJSONOutput{ContentType: "application/geo+json", Body: data}, nil
}
