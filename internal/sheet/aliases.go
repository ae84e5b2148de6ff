package sheet

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Canonical fields shared by the table schemas.
const (
	FieldDay             Field = "day"
	FieldMonth           Field = "month"
	FieldYear            Field = "year"
	FieldDate            Field = "date"
	FieldSeller          Field = "seller"
	FieldCategory        Field = "category"
	FieldTarget          Field = "target"
	FieldInclusiveTarget Field = "inclusive_target"
	FieldInHouseRate     Field = "in_house_rate"
	FieldThirdPartyRate  Field = "third_party_rate"
	FieldRealAmount      Field = "real_amount"
	FieldFinalAmount     Field = "final_amount"
	FieldServiceType     Field = "service_type"
	FieldAllInclusive    Field = "all_inclusive"
	FieldGuide           Field = "guide"
	FieldPassengers      Field = "passengers"
	FieldDailyTarget     Field = "daily_target"
	FieldReservation     Field = "reservation"
	FieldService         Field = "service"
	FieldAmount          Field = "amount"
)

// Schema names, one per decoded table shape.
const (
	SchemaSellers      = "sellers"
	SchemaRates        = "rates"
	SchemaSales        = "sales"
	SchemaChannelSales = "channel_sales"
	SchemaSalesDetail  = "sales_detail"
	SchemaPassengers   = "passengers"
	SchemaDailyTargets = "daily_targets"
	SchemaCommissions  = "commissions"
	SchemaServices     = "services"
)

var (
	dayAliases    = []string{"dia", "Dia", "DIA"}
	monthAliases  = []string{"mês", "Mês", "MES", "Mes"}
	yearAliases   = []string{"ano", "Ano", "ANO"}
	sellerAliases = []string{"Vendedor", "vendedor", "VENDEDOR"}
	aiAliases     = []string{"All Inclusive", "all inclusive", "ALL INCLUSIVE", "ALL Inclusive", "All_Inclusive", "ALL_Inclusive"}
)

// Catalog holds every schema by name.
type Catalog map[string]Schema

// DefaultCatalog returns the header spellings found across the production
// spreadsheets.
func DefaultCatalog() Catalog {
	return Catalog{
		SchemaSellers: {
			Table: SchemaSellers,
			Fields: Aliases{
				FieldSeller:          {"Nome Do Vendedor", "Nome do Vendedor", "Vendedor", "vendedor", "VENDEDOR"},
				FieldCategory:        {"Tipo de Vendedor", "Tipo De Vendedor", "tipo de vendedor"},
				FieldMonth:           {"mês", "Mês", "MES", "Mes"},
				FieldYear:            {"Ano", "ano", "ANO"},
				FieldTarget:          {"Meta", "meta", "META"},
				FieldInclusiveTarget: {"Meta All Inclusive", "Meta AI", "meta all inclusive"},
			},
			Min: 4,
		},
		SchemaRates: {
			Table: SchemaRates,
			Fields: Aliases{
				FieldSeller:         sellerAliases,
				FieldMonth:          monthAliases,
				FieldYear:           yearAliases,
				FieldInHouseRate:    {"Comissão Luck", "Comissao Luck", "COMISSÃO LUCK"},
				FieldThirdPartyRate: {"Comissão Terceiros", "Comissao Terceiros", "COMISSÃO TERCEIROS"},
			},
			Min: 4,
		},
		SchemaSales: {
			Table: SchemaSales,
			Fields: Aliases{
				FieldDay:          dayAliases,
				FieldMonth:        monthAliases,
				FieldYear:         yearAliases,
				FieldSeller:       sellerAliases,
				FieldRealAmount:   {"Valor Real", "valor real", "VALOR REAL"},
				FieldServiceType:  {"Tipo de Serviço", "tipo de serviço", "TIPO DE SERVIÇO", "Tipo de Servico", "Serviço Buggy", "Servico Buggy"},
				FieldAllInclusive: aiAliases,
			},
			Min: 7,
		},
		SchemaChannelSales: {
			Table: SchemaChannelSales,
			Fields: Aliases{
				FieldDay:         dayAliases,
				FieldMonth:       monthAliases,
				FieldYear:        yearAliases,
				FieldSeller:      sellerAliases,
				FieldFinalAmount: {"Valor Final", "valor final", "VALOR FINAL"},
				FieldServiceType: {"Tipo de Serviço", "tipo de serviço", "TIPO DE SERVIÇO", "Tipo de Servico"},
			},
			Min: 6,
		},
		SchemaSalesDetail: {
			Table: SchemaSalesDetail,
			Fields: Aliases{
				FieldDate:         {"Data_Venda", "Data da Venda", "Data Venda", "Data"},
				FieldSeller:       sellerAliases,
				FieldReservation:  {"Reserva", "Código da Reserva", "Codigo da Reserva", "Reservation"},
				FieldAllInclusive: aiAliases,
			},
			Min: 3,
		},
		SchemaPassengers: {
			Table: SchemaPassengers,
			Fields: Aliases{
				FieldDay:          dayAliases,
				FieldMonth:        monthAliases,
				FieldYear:         yearAliases,
				FieldGuide:        {"Guia", "guia", "GUIA"},
				FieldPassengers:   {"Total_Paxs", "total_paxs", "TOTAL_PAXS", "Total Paxs"},
				FieldAllInclusive: aiAliases,
			},
			Min: 6,
		},
		SchemaDailyTargets: {
			Table: SchemaDailyTargets,
			Fields: Aliases{
				FieldSeller:      {"Vendedor", "vendedor", "VENDEDOR", "Nome do Vendedor", "Nome Do Vendedor"},
				FieldDate:        {"Data", "data", "DATA"},
				FieldDailyTarget: {"Meta Diaria", "Meta Diária", "meta diaria", "META DIARIA", "Meta"},
			},
			Min: 3,
		},
		SchemaCommissions: {
			Table: SchemaCommissions,
			Fields: Aliases{
				FieldDate:        {"Data da Venda", "Data_Venda", "Data Venda"},
				FieldSeller:      sellerAliases,
				FieldReservation: {"Código da Reserva", "Codigo da Reserva", "Reserva"},
				FieldService:     {"Serviço", "Servico", "SERVIÇO"},
				FieldAmount:      {"Valor da Venda", "Valor Venda", "VALOR DA VENDA"},
			},
			Min: 4,
		},
		SchemaServices: {
			Table: SchemaServices,
			Fields: Aliases{
				FieldService: {"Nome do Serviço", "Nome do Servico", "Serviço"},
			},
		},
	}
}

// Schema returns the named schema. Unknown names yield an empty schema that
// never resolves.
func (c Catalog) Schema(name string) Schema {
	if s, ok := c[name]; ok {
		return s
	}
	return Schema{Table: name, Fields: Aliases{}, Min: 1}
}

type aliasFile map[string]struct {
	Min    *int                `yaml:"min"`
	Fields map[string][]string `yaml:"fields"`
}

// LoadAliases reads a YAML override file on top of the default catalog. Each
// listed field replaces the default alias list; fields not listed keep theirs.
//
//	sales:
//	  min: 7
//	  fields:
//	    seller: [Vendedor, Consultor]
func LoadAliases(path string) (Catalog, error) {
	catalog := DefaultCatalog()
	if path == "" {
		return catalog, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sheet: read aliases: %w", err)
	}
	var file aliasFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("sheet: parse aliases: %w", err)
	}
	return catalog.merge(file)
}

func (c Catalog) merge(file aliasFile) (Catalog, error) {
	names := make([]string, 0, len(file))
	for name := range file {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		override := file[name]
		schema, ok := c[name]
		if !ok {
			return nil, fmt.Errorf("sheet: unknown schema %q in aliases", name)
		}
		fields := make(Aliases, len(schema.Fields))
		for f, aliases := range schema.Fields {
			fields[f] = aliases
		}
		for f, aliases := range override.Fields {
			if len(aliases) == 0 {
				return nil, fmt.Errorf("sheet: schema %q field %q has no aliases", name, f)
			}
			fields[Field(f)] = aliases
		}
		schema.Fields = fields
		if override.Min != nil {
			if *override.Min < 0 || *override.Min > len(fields) {
				return nil, fmt.Errorf("sheet: schema %q min %d out of range", name, *override.Min)
			}
			schema.Min = *override.Min
		}
		c[name] = schema
	}
	return c, nil
}
