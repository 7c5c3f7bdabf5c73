// Package schema declares the warehouse star schema: the staging table, the
// surrogate-keyed dimension tables and the churn fact table.
//
// The DDL itself is generated per backend from these specs, so the schema is
// defined exactly once and every dialect stays in sync.
package schema

import "telcodw/internal/storage"

// Table names.
const (
	StgChurn      = "stg_churn"
	DimTime       = "dim_time"
	DimCustomer   = "dim_customer"
	DimServices   = "dim_services"
	DimGeography  = "dim_geography"
	DimPopulation = "dim_population"
	FactChurn     = "fact_churn"
)

// TimeColumns is the dim_time insert order. date_sk is the natural key: the
// calendar date encoded as a YYYYMMDD integer.
var TimeColumns = []string{"date_sk", "d_date", "year", "quarter", "month", "day"}

// CustomerColumns is the dim_customer insert order (surrogate key excluded).
var CustomerColumns = []string{"customer_id", "gender", "senior_citizen", "partner", "dependents", "age_group"}

// ServiceColumns is the fixed 12-attribute service/billing vocabulary.
var ServiceColumns = []string{
	"phone_service", "multiple_lines", "internet_service", "online_security",
	"online_backup", "device_protection", "tech_support", "streaming_tv",
	"streaming_movies", "paperless_billing", "contract", "payment_method",
}

// GeographyColumns is the fixed dim_geography vocabulary.
var GeographyColumns = []string{"state", "city", "zip_code", "county", "latitude", "longitude"}

// PopulationColumns is the fixed dim_population vocabulary.
var PopulationColumns = []string{"city", "state", "population", "population_density", "median_income", "unemployment_rate"}

// FactColumns is the fact_churn insert order.
var FactColumns = []string{
	"customer_sk", "geo_sk", "population_sk", "service_sk", "date_sk",
	"tenure_months", "monthly_charges", "total_charges", "churn_flag", "churn_label",
}

// Staging matches the Staged Fact Row shape exactly, case-sensitive.
func Staging() storage.TableSpec {
	return storage.TableSpec{
		Name: StgChurn,
		Columns: []storage.ColumnSpec{
			{Name: "customer_id", Type: "varchar(64)", Nullable: true},
			{Name: "monthly_charges", Type: "decimal(10,2)"},
			{Name: "total_charges", Type: "decimal(12,2)"},
			{Name: "tenure_months", Type: "int"},
			{Name: "churn_flag", Type: "int"},
			{Name: "churn_label", Type: "varchar(32)"},
		},
	}
}

// Time keys the calendar dimension by its natural YYYYMMDD integer, so the
// insert-if-absent on promotion conflicts on the primary key itself.
func Time() storage.TableSpec {
	return storage.TableSpec{
		Name:       DimTime,
		PrimaryKey: &storage.PrimaryKeySpec{Name: "date_sk", Type: "int"},
		Columns: []storage.ColumnSpec{
			{Name: "d_date", Type: "date"},
			{Name: "year", Type: "int"},
			{Name: "quarter", Type: "int"},
			{Name: "month", Type: "int"},
			{Name: "day", Type: "int"},
		},
		Conflict: []string{"date_sk"},
	}
}

// Customer is the only dimension with a natural key in the source data.
func Customer() storage.TableSpec {
	return storage.TableSpec{
		Name:       DimCustomer,
		PrimaryKey: &storage.PrimaryKeySpec{Name: "customer_sk", Type: "serial"},
		Columns: []storage.ColumnSpec{
			{Name: "customer_id", Type: "varchar(64)"},
			{Name: "gender", Type: "varchar(16)", Nullable: true},
			{Name: "senior_citizen", Type: "int", Nullable: true},
			{Name: "partner", Type: "int", Nullable: true},
			{Name: "dependents", Type: "int", Nullable: true},
			{Name: "age_group", Type: "varchar(32)", Nullable: true},
		},
		Constraints: []storage.ConstraintSpec{{Kind: "unique", Columns: []string{"customer_id"}}},
		Conflict:    []string{"customer_id"},
	}
}

// Services has no natural key in the source; row identity is the full
// attribute tuple, enforced by a unique constraint across all twelve columns.
func Services() storage.TableSpec {
	cols := make([]storage.ColumnSpec, 0, len(ServiceColumns))
	for _, c := range ServiceColumns {
		cols = append(cols, storage.ColumnSpec{Name: c, Type: "varchar(48)", Nullable: true})
	}
	return storage.TableSpec{
		Name:        DimServices,
		PrimaryKey:  &storage.PrimaryKeySpec{Name: "service_sk", Type: "serial"},
		Columns:     cols,
		Constraints: []storage.ConstraintSpec{{Kind: "unique", Columns: ServiceColumns}},
		Conflict:    ServiceColumns,
	}
}

// Geography dedupes by full-row identity, like Services.
func Geography() storage.TableSpec {
	return storage.TableSpec{
		Name:       DimGeography,
		PrimaryKey: &storage.PrimaryKeySpec{Name: "geo_sk", Type: "serial"},
		Columns: []storage.ColumnSpec{
			{Name: "state", Type: "varchar(32)", Nullable: true},
			{Name: "city", Type: "varchar(64)", Nullable: true},
			{Name: "zip_code", Type: "varchar(16)", Nullable: true},
			{Name: "county", Type: "varchar(64)", Nullable: true},
			{Name: "latitude", Type: "varchar(24)", Nullable: true},
			{Name: "longitude", Type: "varchar(24)", Nullable: true},
		},
		Constraints: []storage.ConstraintSpec{{Kind: "unique", Columns: GeographyColumns}},
		Conflict:    GeographyColumns,
	}
}

// Population dedupes by full-row identity, like Services.
func Population() storage.TableSpec {
	return storage.TableSpec{
		Name:       DimPopulation,
		PrimaryKey: &storage.PrimaryKeySpec{Name: "population_sk", Type: "serial"},
		Columns: []storage.ColumnSpec{
			{Name: "city", Type: "varchar(64)", Nullable: true},
			{Name: "state", Type: "varchar(32)", Nullable: true},
			{Name: "population", Type: "varchar(24)", Nullable: true},
			{Name: "population_density", Type: "varchar(24)", Nullable: true},
			{Name: "median_income", Type: "varchar(24)", Nullable: true},
			{Name: "unemployment_rate", Type: "varchar(24)", Nullable: true},
		},
		Constraints: []storage.ConstraintSpec{{Kind: "unique", Columns: PopulationColumns}},
		Conflict:    PopulationColumns,
	}
}

// Fact is append-only. geo_sk, population_sk and service_sk are declared but
// stay unresolved for now; only customer_sk and date_sk get populated.
func Fact() storage.TableSpec {
	return storage.TableSpec{
		Name: FactChurn,
		Columns: []storage.ColumnSpec{
			{Name: "customer_sk", Type: "int", References: "dim_customer(customer_sk)", Nullable: true},
			{Name: "geo_sk", Type: "int", References: "dim_geography(geo_sk)", Nullable: true},
			{Name: "population_sk", Type: "int", References: "dim_population(population_sk)", Nullable: true},
			{Name: "service_sk", Type: "int", References: "dim_services(service_sk)", Nullable: true},
			{Name: "date_sk", Type: "int", References: "dim_time(date_sk)", Nullable: true},
			{Name: "tenure_months", Type: "int"},
			{Name: "monthly_charges", Type: "decimal(10,2)"},
			{Name: "total_charges", Type: "decimal(12,2)"},
			{Name: "churn_flag", Type: "int"},
			{Name: "churn_label", Type: "varchar(32)"},
		},
	}
}

// Tables returns every warehouse table in dependency order (dimensions before
// the fact table, staging first).
func Tables() []storage.TableSpec {
	return []storage.TableSpec{
		Staging(),
		Time(),
		Customer(),
		Services(),
		Geography(),
		Population(),
		Fact(),
	}
}
