// Package quality scores respondents by missing-sample percentage and
// filters out those exceeding the configured threshold before correlation.
package quality
