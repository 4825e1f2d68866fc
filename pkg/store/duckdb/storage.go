package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/marcboeker/go-duckdb/v2"
)

// Soil survey tables. Only the columns the rating engine and the bundled
// attribute catalog read are declared; imports may add more.
const MapUnitSchema = `
	CREATE TABLE IF NOT EXISTS mapunit (
		mukey VARCHAR PRIMARY KEY,
		areasymbol VARCHAR,
		musym VARCHAR,
		muname VARCHAR,
		farmlndcl VARCHAR
	);
`
const ComponentSchema = `
	CREATE TABLE IF NOT EXISTS component (
		cokey VARCHAR PRIMARY KEY,
		mukey VARCHAR NOT NULL,
		compname VARCHAR,
		comppct_r DOUBLE,
		majcompflag VARCHAR,
		compkind VARCHAR,
		hydgrp VARCHAR,
		hydricrating VARCHAR,
		drainagecl VARCHAR,
		slope_r DOUBLE,
		resdept_r INTEGER
	);
`
const HorizonSchema = `
	CREATE TABLE IF NOT EXISTS chorizon (
		chkey VARCHAR PRIMARY KEY,
		cokey VARCHAR NOT NULL,
		hzdept_r DOUBLE,
		hzdepb_r DOUBLE,
		awc_r DOUBLE,
		claytotal_r DOUBLE,
		texcl VARCHAR
	);
`
const MonthSchema = `
	CREATE TABLE IF NOT EXISTS comonth (
		comonthkey VARCHAR PRIMARY KEY,
		cokey VARCHAR NOT NULL,
		monthseq INTEGER,
		month VARCHAR,
		flodfreqcl VARCHAR
	);
`
const InterpretationSchema = `
	CREATE TABLE IF NOT EXISTS cointerp (
		cointerpkey VARCHAR PRIMARY KEY,
		cokey VARCHAR NOT NULL,
		mrulename VARCHAR,
		ruledepth INTEGER,
		interphrc VARCHAR,
		interphr DOUBLE
	);
`
const CropYieldSchema = `
	CREATE TABLE IF NOT EXISTS cocropyld (
		cocropyldkey VARCHAR PRIMARY KEY,
		cokey VARCHAR NOT NULL,
		cropname VARCHAR,
		yldunits VARCHAR,
		nonirryield_r DOUBLE
	);
`
const AttributeCatalogSchema = `
	CREATE TABLE IF NOT EXISTS sdvattribute (
		attributename VARCHAR PRIMARY KEY,
		attributetablename VARCHAR NOT NULL,
		attributecolumnname VARCHAR NOT NULL,
		fuzzycolumnname VARCHAR,
		attributelogicaldatatype VARCHAR NOT NULL,
		attributelevel VARCHAR,
		algorithmname VARCHAR,
		tiebreakrule VARCHAR,
		tiebreaklowlabel VARCHAR,
		tiebreakhighlabel VARCHAR,
		attributeprecision INTEGER,
		attributeuom VARCHAR,
		nullratingreplacementvalue DOUBLE,
		notratedphrase VARCHAR,
		domainname VARCHAR,
		primaryconcolname VARCHAR,
		secondaryconcolname VARCHAR,
		fixedfilters VARCHAR
	);
`
const DomainCatalogSchema = `
	CREATE TABLE IF NOT EXISTS sdvdomain (
		domainname VARCHAR NOT NULL,
		choicesequence INTEGER NOT NULL,
		choice VARCHAR NOT NULL,
		choicedescription VARCHAR,
		PRIMARY KEY (domainname, choicesequence)
	);
`

const RatingRunSchema = `
	CREATE TABLE IF NOT EXISTS rating_runs (
		id VARCHAR PRIMARY KEY,
		attributes VARCHAR,
		status VARCHAR NOT NULL,
		processed INTEGER NOT NULL DEFAULT 0,
		error VARCHAR NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
`
const RatingResultSchema = `
	CREATE TABLE IF NOT EXISTS rating_results (
		run_id VARCHAR NOT NULL,
		attribute VARCHAR NOT NULL,
		mukey VARCHAR NOT NULL,
		areasymbol VARCHAR,
		rating_kind VARCHAR NOT NULL,
		rating_num DOUBLE,
		rating_class VARCHAR,
		comppct DOUBLE,
		PRIMARY KEY (run_id, attribute, mukey)
	);
`

var bootQueries = []string{
	MapUnitSchema,
	ComponentSchema,
	HorizonSchema,
	MonthSchema,
	InterpretationSchema,
	CropYieldSchema,
	AttributeCatalogSchema,
	DomainCatalogSchema,
	RatingRunSchema,
	RatingResultSchema,
}

type Settings struct {
	DbPath string `mapstructure:"path"`
}

func NewDB(settings Settings) (*sql.DB, error) {
	c, err := duckdb.NewConnector(fmt.Sprintf("%s?threads=4", settings.DbPath), func(exec driver.ExecerContext) error {
		bootQueries := append([]string{}, bootQueries...)

		for _, query := range bootQueries {
			_, err := exec.ExecContext(context.Background(), query, nil)
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	db := sql.OpenDB(c)
	return db, nil
}
