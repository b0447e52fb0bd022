package store

import (
	"fmt"

	"marketshm/internal/model/enum"
)

// DefaultDomain prefixes every segment name when a config leaves Domain empty.
const DefaultDomain = "marketshm"

// MonitoringField names one sub-region of the monitoring aggregate.
type MonitoringField string

const (
	MonitoringStats       MonitoringField = "stats"
	MonitoringClosePrices MonitoringField = "close_prices"
	MonitoringCandleTime  MonitoringField = "candle_time"
	MonitoringLastTrade   MonitoringField = "last_trade"
	MonitoringIsUpdated   MonitoringField = "is_updated"
)

// MonitoringFields returns the sub-regions in creation order.
func MonitoringFields() []MonitoringField {
	return []MonitoringField{
		MonitoringStats,
		MonitoringClosePrices,
		MonitoringCandleTime,
		MonitoringLastTrade,
		MonitoringIsUpdated,
	}
}

// CandleName is {domain}_{market}_{interval}.
func CandleName(domain string, market enum.Market, interval enum.Interval) string {
	return fmt.Sprintf("%s_%s_%s", domainOrDefault(domain), market, interval)
}

// HeartbeatName is {domain}_health_{market}_{interval}.
func HeartbeatName(domain string, market enum.Market, interval enum.Interval) string {
	return fmt.Sprintf("%s_health_%s_%s", domainOrDefault(domain), market, interval)
}

// IndicatorName is {domain}_stat_{market}_{interval}.
func IndicatorName(domain string, market enum.Market, interval enum.Interval) string {
	return fmt.Sprintf("%s_stat_%s_%s", domainOrDefault(domain), market, interval)
}

// MonitoringName is {domain}_monitoring_{field}.
func MonitoringName(domain string, field MonitoringField) string {
	return fmt.Sprintf("%s_monitoring_%s", domainOrDefault(domain), field)
}

func domainOrDefault(domain string) string {
	if domain == "" {
		return DefaultDomain
	}
	return domain
}
