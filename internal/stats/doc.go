// Package stats computes the aggregate counts shown on the operator dashboard.
//
// Every query runs against the live tables on each call; nothing is cached.
// Day and month buckets are taken in the site timezone, so a reading stored
// at 23:30 UTC may count towards the next day for a site east of Greenwich.
package stats
