package perf

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/Glebrito/Analisediaria/internal/commission"
	"github.com/Glebrito/Analisediaria/internal/sheet"
)

var categories = []string{"Transferistas", "Guias", "Desks", "Online"}

// monthTables builds a March 2025 workload with sellers selling every day.
func monthTables(sellers, salesPerDay int) commission.Tables {
	var (
		roster, sales, pax, rates, detail [][]string
	)
	for s := 0; s < sellers; s++ {
		name := fmt.Sprintf("Vendedor %03d", s)
		category := categories[s%len(categories)]
		roster = append(roster, []string{name, category, "3", "2025", "R$ 5.000,00", "R$ 2.000,00"})
		rates = append(rates, []string{name, "3", "2025", "10%", "5%"})
		for day := 1; day <= 31; day++ {
			d := strconv.Itoa(day)
			date := fmt.Sprintf("%02d/03/2025", day)
			pax = append(pax, []string{d, "3", "2025", name, "400", "Não"})
			for i := 0; i < salesPerDay; i++ {
				booking := fmt.Sprintf("R-%d-%d-%d", s, day, i)
				inclusive := "Não"
				if i%3 == 0 {
					inclusive = "Sim"
				}
				service := "Luck"
				if i%5 == 0 {
					service = "Terceiro"
				}
				sales = append(sales, []string{d, "3", "2025", name, "R$ 350,00", "R$ 380,00", service, inclusive, date, booking})
				detail = append(detail, []string{date, name, booking, "City Tour", "R$ 350,00"})
			}
		}
	}
	return commission.Tables{
		Sellers:      sheet.FromRecords("sellers", []string{"Nome Do Vendedor", "Tipo de Vendedor", "mês", "Ano", "Meta", "Meta All Inclusive"}, roster),
		Sales:        sheet.FromRecords("sales", []string{"dia", "mês", "Ano", "Vendedor", "Valor Real", "Valor Final", "Tipo de Serviço", "All Inclusive", "Data_Venda", "Reserva"}, sales),
		Passengers:   sheet.FromRecords("passengers", []string{"dia", "mês", "Ano", "Guia", "Total_Paxs", "All Inclusive"}, pax),
		DailyTargets: sheet.FromRecords("daily_targets", []string{"Vendedor", "Data", "Meta Diaria"}, [][]string{{"Vendedor 002", "01/03/2025", "R$ 300,00"}}),
		Rates:        sheet.FromRecords("rates", []string{"Vendedor", "mês", "Ano", "Comissão Luck", "Comissão Terceiros"}, rates),
		Commissions:  sheet.FromRecords("commissions", []string{"Data da Venda", "Vendedor", "Código da Reserva", "Serviço", "Valor da Venda"}, detail),
		Services:     sheet.FromRecords("third_party_services", []string{"Nome do Serviço"}, [][]string{{"Mergulho"}}),
	}
}

func newEngine(workers int) *commission.Engine {
	decoder := commission.NewDecoder(sheet.DefaultCatalog(), decimal.NewFromInt(100), nil)
	return commission.NewEngine(decoder, commission.Options{Workers: workers}, nil)
}

func marchPeriod() commission.Period {
	return commission.Period{
		Start: commission.Day{Day: 1, Month: 3, Year: 2025},
		End:   commission.Day{Day: 31, Month: 3, Year: 2025},
	}
}
