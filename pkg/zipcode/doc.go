// Package zipcode provides lookup and search over US ZIP code reference
// data. Records combine Census ZCTA attributes (centroid, land and water
// area, optional polygon boundary) with naming and demographic fields from
// a places crosswalk. A Store persists records in SQLite or Postgres, and
// Search answers point, city, prefix, proximity and containment queries on
// top of it.
package zipcode
