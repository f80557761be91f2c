package services

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"car-ads/models"
	"car-ads/utils"
)

// segmentOrder fixes the order segments are reported in.
var segmentOrder = []string{
	models.SegmentNewExpensive,
	models.SegmentMidRange,
	models.SegmentOldCheap,
	models.SegmentNone,
}

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

func (s *InsightService) Generate(listings []*models.Listing) *models.InsightReport {
	report := &models.InsightReport{
		ByBrand:   make(map[string]int),
		ByStatus:  make(map[string]int),
		ByChannel: make(map[string]int),
	}

	if len(listings) == 0 {
		return report
	}

	report.TotalListings = len(listings)

	type acc struct {
		count, priced, dated int
		price, year          float64
	}
	segments := make(map[string]*acc)

	var total float64
	for _, l := range listings {
		brand := l.Brand
		if brand == "" {
			brand = models.NoInfo
		}
		report.ByBrand[brand]++
		report.ByStatus[l.Status]++
		report.ByChannel[l.Channel]++

		seg := segments[l.Cluster]
		if seg == nil {
			seg = &acc{}
			segments[l.Cluster] = seg
		}
		seg.count++
		if l.Year != nil {
			seg.dated++
			seg.year += float64(*l.Year)
		}

		if l.Price == nil {
			continue
		}
		seg.priced++
		seg.price += *l.Price

		p := *l.Price
		if report.PricedListings == 0 || p < report.MinPrice {
			report.MinPrice = p
		}
		if report.PricedListings == 0 || p > report.MaxPrice {
			report.MaxPrice = p
			report.MostExpensive = l
		}
		report.PricedListings++
		total += p
	}

	// Price stats (only listings with a price)
	if report.PricedListings > 0 {
		report.AveragePrice = round2(total / float64(report.PricedListings))
		report.MinPrice = round2(report.MinPrice)
		report.MaxPrice = round2(report.MaxPrice)
	}

	for _, label := range segmentOrder {
		seg, ok := segments[label]
		if !ok {
			continue
		}
		summary := models.SegmentSummary{Label: label, Count: seg.count}
		if seg.priced > 0 {
			summary.AveragePrice = round2(seg.price / float64(seg.priced))
		}
		if seg.dated > 0 {
			summary.AverageYear = round2(seg.year / float64(seg.dated))
		}
		report.Segments = append(report.Segments, summary)
	}

	return report
}

// Print writes the report to stdout.
func (s *InsightService) Print(r *models.InsightReport) {
	s.Fprint(os.Stdout, r)
}

func (s *InsightService) Fprint(w io.Writer, r *models.InsightReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  🚗 CAR ADS INSIGHTS\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	// Overview
	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Total listings  : \033[1m%d\033[0m\n", r.TotalListings)
	fmt.Fprintf(w, "  Priced listings : \033[1m%d\033[0m\n", r.PricedListings)
	fmt.Fprintln(w)

	// Price Stats
	fmt.Fprintf(w, "\033[1;33m  Price Statistics (million toman)\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.PricedListings > 0 {
		fmt.Fprintf(w, "  Average price : \033[1;32m%.2f\033[0m\n", r.AveragePrice)
		fmt.Fprintf(w, "  Minimum price : \033[1;32m%.2f\033[0m\n", r.MinPrice)
		fmt.Fprintf(w, "  Maximum price : \033[1;32m%.2f\033[0m\n", r.MaxPrice)
	} else {
		fmt.Fprintf(w, "  No price data available\n")
	}
	fmt.Fprintln(w)

	// Most Expensive
	if r.MostExpensive != nil {
		l := r.MostExpensive
		fmt.Fprintf(w, "\033[1;33m  Most Expensive Listing\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  %s\n", truncate(strings.TrimSpace(l.Brand+" "+l.Model), 50))
		fmt.Fprintf(w, "  Channel : %s\n", l.Channel)
		fmt.Fprintf(w, "  Price   : \033[1;31m%.2f\033[0m\n", *l.Price)
		fmt.Fprintln(w)
	}

	// Segments
	fmt.Fprintf(w, "\033[1;33m  Market Segments\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.Segments) == 0 {
		fmt.Fprintf(w, "  No segments\n")
	} else {
		for _, seg := range r.Segments {
			fmt.Fprintf(w, "  %-16s %4d  avg price %9.2f  avg year %7.1f\n",
				seg.Label, seg.Count, seg.AveragePrice, seg.AverageYear)
		}
	}
	fmt.Fprintln(w)

	printCounts(w, "Listings by Status", r.ByStatus, thin)
	printCounts(w, "Listings by Brand", r.ByBrand, thin)
	printCounts(w, "Listings by Channel", r.ByChannel, thin)

	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)
}

func printCounts(w io.Writer, title string, counts map[string]int, thin string) {
	fmt.Fprintf(w, "\033[1;33m  %s\033[0m\n", title)
	fmt.Fprintf(w, "  %s\n", thin)
	if len(counts) == 0 {
		fmt.Fprintf(w, "  No data\n\n")
		return
	}

	// Sort keys by count descending
	type keyCount struct {
		key   string
		count int
	}
	var keys []keyCount
	for k, c := range counts {
		keys = append(keys, keyCount{k, c})
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].count != keys[j].count {
			return keys[i].count > keys[j].count
		}
		return keys[i].key < keys[j].key
	})
	for _, kc := range keys {
		bar := strings.Repeat("█", kc.count)
		fmt.Fprintf(w, "  %-30s %s (%d)\n", truncate(kc.key, 28), bar, kc.count)
	}
	fmt.Fprintln(w)
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
