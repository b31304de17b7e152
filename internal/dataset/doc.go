// Package dataset loads the sentence collection a study session works
// through. Datasets are JSON or YAML arrays of sentences read from a local
// file or an HTTP(S) URL, and can be watched for changes on disk.
package dataset
