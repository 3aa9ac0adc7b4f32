// Package quotes resolves quote line items into slicing jobs and keeps quote
// subtotals in sync with job prices.
package quotes
