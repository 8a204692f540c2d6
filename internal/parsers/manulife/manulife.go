// Package manulife parses the balance and purchase text blocks copied from
// the ManuLife group retirement website.
package manulife

import (
	"regexp"
	"strings"
	"time"
)

// DateLayout is the layout of the contribution date line.
const DateLayout = "January 2, 2006"

var (
	commodityRegex         = regexp.MustCompile(`(?m)\s*?(\d{4}\s*?-\s*?.*?[a-z]\d)\s*?$`)
	employeeBasicRegex     = regexp.MustCompile(`(?m)\s*?Employee Basic\s*([0-9.]*)`)
	employeeVoluntaryRegex = regexp.MustCompile(`(?m)\s*?Employee voluntary\s*([0-9.]*)`)
	employerBasicRegex     = regexp.MustCompile(`(?m)\s*?Employer Basic\s*([0-9.]*)`)
	employerMatchRegex     = regexp.MustCompile(`(?m)\s*?Employer Match\s*([0-9.]*)`)
	unitValueRegex         = regexp.MustCompile(`(?m)\s*?(?:Employer Basic|Member Voluntary|Employee voluntary)\s*[0-9.]*\s*([0-9.]*)\s*[0-9.]*`)

	dateRegex     = regexp.MustCompile(`(?m)^(.*) Contribution \(Ref.`)
	purchaseRegex = regexp.MustCompile(`(?m)\s*.*?\.gif\s*(\d{4}.*?[a-z]\d)\s*$\s*Contribution\s*([0-9.]*)\s*units\s*@\s*\$([0-9.]*)/unit\s*([0-9.]*)\s*$`)
)

// Balance is the holding of one fund. Contribution fields are unit counts
// and empty when the fund has no units from that source.
type Balance struct {
	Commodity         string
	UnitValue         string
	EmployeeBasic     string
	EmployeeVoluntary string
	EmployerBasic     string
	EmployerMatch     string
}

// Buy is the purchase of units of one fund.
type Buy struct {
	Commodity string
	Units     string
	Price     string
	Total     string
}

// ParseBalances parses the balance text. Funds are separated by "TOTAL" lines;
// blocks without fund name or unit value are skipped. commodities maps fund
// names to commodity symbols; unknown names are kept as they are.
func ParseBalances(text string, commodities map[string]string) []Balance {
	var results []Balance
	for _, block := range strings.Split(text, "TOTAL") {
		name, ok := firstMatch(commodityRegex, block)
		if !ok {
			continue
		}
		unitValue, ok := firstMatch(unitValueRegex, block)
		if !ok || unitValue == "" {
			continue
		}
		employeeBasic, _ := firstMatch(employeeBasicRegex, block)
		employeeVoluntary, _ := firstMatch(employeeVoluntaryRegex, block)
		employerBasic, _ := firstMatch(employerBasicRegex, block)
		employerMatch, _ := firstMatch(employerMatchRegex, block)

		results = append(results, Balance{
			Commodity:         lookupCommodity(name, commodities),
			UnitValue:         unitValue,
			EmployeeBasic:     employeeBasic,
			EmployeeVoluntary: employeeVoluntary,
			EmployerBasic:     employerBasic,
			EmployerMatch:     employerMatch,
		})
	}
	return results
}

// ParsePurchase parses the contribution text into buys and the contribution
// date. ok is false when no date line was found or it could not be parsed.
func ParsePurchase(text string, commodities map[string]string) (buys []Buy, date time.Time, ok bool) {
	for _, match := range purchaseRegex.FindAllStringSubmatch(text, -1) {
		buys = append(buys, Buy{
			Commodity: lookupCommodity(match[1], commodities),
			Units:     match[2],
			Price:     match[3],
			Total:     match[4],
		})
	}

	raw, found := firstMatch(dateRegex, text)
	if !found {
		return buys, time.Time{}, false
	}
	parsed, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return buys, time.Time{}, false
	}
	return buys, parsed, true
}

// lookupCommodity normalizes "1234 - Fund a1" to "1234 Fund a1" and maps it
// to a symbol.
func lookupCommodity(name string, commodities map[string]string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), " -", "")
	if symbol, ok := commodities[name]; ok {
		return symbol
	}
	return name
}

func firstMatch(re *regexp.Regexp, input string) (string, bool) {
	match := re.FindStringSubmatch(input)
	if len(match) != 2 {
		return "", false
	}
	return match[1], true
}
