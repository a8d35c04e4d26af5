// Package container encodes and decodes the on-disk record of an sDB store file.
//
// A store file holds exactly one record with three fields:
//
//	signature  fixed magic bytes identifying the file format
//	iv         the 16 byte CBC initialization vector of this write
//	data       the ciphertext of the serialized document tree
//
// Each field is stored as a hex string inside a BSON document (field order
// signature, iv, data) and the BSON bytes are hex encoded once more to form the
// complete file content.
//
// The package is purely structural. It does not compare the signature against an
// expected value and knows nothing about the ciphertext.
package container
