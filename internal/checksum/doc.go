// Package checksum fingerprints dataset files.
//
// The checksum is a SHA-256 of the file exactly as stored, so a compressed
// export and its decompressed form have different fingerprints. It is
// printed with every load report so a table can be traced back to the file
// it was loaded from.
//
// # Example Usage
//
//	sum, err := checksum.New().File("star_classification.csv.zst")
//
// A Digest hashes bytes while another consumer reads them:
//
//	d := checksum.NewDigest()
//	obs, err := dataset.NewReader(dataset.WithDigest(d)).ReadObservations(path)
//	fmt.Println(d.Sum())
//
// SHA256 is safe for concurrent use by multiple goroutines.
package checksum
