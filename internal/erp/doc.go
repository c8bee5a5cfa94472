// Package erp downloads ST exports from the JD Edwards web client.
//
// A Schedule is a list of download Jobs derived from the current date. The
// Client logs in with chromedp, runs each Job through the saved ST query
// favourite and stores the export in the downloads directory under a name
// derived from the Job.
package erp
