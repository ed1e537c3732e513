package sector

// DefaultTable returns the compiled-in benchmark dataset. Values are
// sector-typical valuation percentiles; a versioned dataset can be loaded
// from YAML instead via LoadTable.
func DefaultTable() Table {
	return Table{
		"Technology": {
			RatioPE:       {P25: 18, Median: 26, P75: 38, Max: 60},
			RatioPB:       {P25: 3.0, Median: 5.5, P75: 9.0, Max: 15},
			RatioPS:       {P25: 3.0, Median: 5.0, P75: 8.5, Max: 14},
			RatioEVEBITDA: {P25: 13, Median: 18, P75: 26, Max: 40},
			RatioPEG:      {P25: 1.0, Median: 1.6, P75: 2.4},
		},
		"Healthcare": {
			RatioPE:       {P25: 15, Median: 22, P75: 32, Max: 50},
			RatioPB:       {P25: 2.2, Median: 3.8, P75: 6.0, Max: 10},
			RatioPS:       {P25: 1.8, Median: 3.5, P75: 6.0, Max: 10},
			RatioEVEBITDA: {P25: 11, Median: 15, P75: 21, Max: 32},
			RatioPEG:      {P25: 1.1, Median: 1.8, P75: 2.6},
		},
		"Financial Services": {
			RatioPE:       {P25: 9, Median: 12, P75: 16, Max: 25},
			RatioPB:       {P25: 0.9, Median: 1.3, P75: 1.9, Max: 3.2},
			RatioPS:       {P25: 1.8, Median: 2.8, P75: 4.0, Max: 6.5},
			RatioEVEBITDA: {P25: 8, Median: 11, P75: 15, Max: 22},
			RatioPEG:      {P25: 0.8, Median: 1.2, P75: 1.8},
		},
		"Consumer Cyclical": {
			RatioPE:       {P25: 12, Median: 18, P75: 26, Max: 42},
			RatioPB:       {P25: 1.8, Median: 3.0, P75: 5.0, Max: 9},
			RatioPS:       {P25: 0.8, Median: 1.5, P75: 2.6, Max: 4.5},
			RatioEVEBITDA: {P25: 9, Median: 12, P75: 17, Max: 26},
			RatioPEG:      {P25: 0.9, Median: 1.4, P75: 2.1},
		},
		"Consumer Defensive": {
			RatioPE:       {P25: 14, Median: 19, P75: 25, Max: 38},
			RatioPB:       {P25: 2.0, Median: 3.2, P75: 5.0, Max: 8.5},
			RatioPS:       {P25: 0.9, Median: 1.6, P75: 2.6, Max: 4.2},
			RatioEVEBITDA: {P25: 10, Median: 13, P75: 17, Max: 25},
			RatioPEG:      {P25: 1.4, Median: 2.2, P75: 3.2},
		},
		"Industrials": {
			RatioPE:       {P25: 14, Median: 19, P75: 26, Max: 40},
			RatioPB:       {P25: 1.8, Median: 2.9, P75: 4.6, Max: 8},
			RatioPS:       {P25: 1.0, Median: 1.7, P75: 2.7, Max: 4.5},
			RatioEVEBITDA: {P25: 10, Median: 13, P75: 17, Max: 25},
			RatioPEG:      {P25: 1.1, Median: 1.7, P75: 2.5},
		},
		"Energy": {
			RatioPE:       {P25: 7, Median: 10, P75: 15, Max: 24},
			RatioPB:       {P25: 0.9, Median: 1.5, P75: 2.3, Max: 4},
			RatioPS:       {P25: 0.6, Median: 1.1, P75: 1.8, Max: 3},
			RatioEVEBITDA: {P25: 4, Median: 6, P75: 9, Max: 14},
			RatioPEG:      {P25: 0.6, Median: 1.0, P75: 1.6},
		},
		"Utilities": {
			RatioPE:       {P25: 14, Median: 17, P75: 21, Max: 30},
			RatioPB:       {P25: 1.3, Median: 1.8, P75: 2.4, Max: 3.8},
			RatioPS:       {P25: 1.4, Median: 2.2, P75: 3.2, Max: 5},
			RatioEVEBITDA: {P25: 9, Median: 11, P75: 14, Max: 20},
			RatioPEG:      {P25: 1.8, Median: 2.6, P75: 3.6},
		},
		"Real Estate": {
			RatioPE:       {P25: 16, Median: 24, P75: 36, Max: 55},
			RatioPB:       {P25: 1.2, Median: 1.8, P75: 2.7, Max: 4.5},
			RatioPS:       {P25: 3.5, Median: 5.5, P75: 8.5, Max: 14},
			RatioEVEBITDA: {P25: 13, Median: 17, P75: 22, Max: 32},
			RatioPEG:      {P25: 1.5, Median: 2.4, P75: 3.5},
		},
		"Basic Materials": {
			RatioPE:       {P25: 9, Median: 13, P75: 19, Max: 30},
			RatioPB:       {P25: 1.2, Median: 1.9, P75: 3.0, Max: 5},
			RatioPS:       {P25: 0.8, Median: 1.4, P75: 2.2, Max: 3.8},
			RatioEVEBITDA: {P25: 5.5, Median: 8, P75: 11, Max: 17},
			RatioPEG:      {P25: 0.8, Median: 1.3, P75: 2.0},
		},
		"Communication Services": {
			RatioPE:       {P25: 12, Median: 18, P75: 27, Max: 44},
			RatioPB:       {P25: 1.5, Median: 2.6, P75: 4.4, Max: 8},
			RatioPS:       {P25: 1.3, Median: 2.4, P75: 4.2, Max: 7.5},
			RatioEVEBITDA: {P25: 7, Median: 10, P75: 14, Max: 22},
			RatioPEG:      {P25: 0.9, Median: 1.4, P75: 2.1},
		},
		Default: {
			RatioPE:       {P25: 12, Median: 18, P75: 26, Max: 42},
			RatioPB:       {P25: 1.5, Median: 2.6, P75: 4.4, Max: 8},
			RatioPS:       {P25: 1.2, Median: 2.2, P75: 3.8, Max: 6.5},
			RatioEVEBITDA: {P25: 8, Median: 12, P75: 17, Max: 26},
			RatioPEG:      {P25: 1.0, Median: 1.6, P75: 2.4},
		},
	}
}
