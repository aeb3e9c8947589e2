// Package address provides normalization functions for US postal addresses.
//
// The package builds on the token package to standardize street names. Values
// are split into character type runs, cleaned of ordinal suffixes like the
// 'th' in '35th', mapped to USPS standard abbreviations and reassembled either
// as a human readable standardized name or as a collision key for duplicate
// detection.
package address
