package models

// All returns every model the signer store migrates.
func All() []interface{} {
	return []interface{}{
		&TokenModel{},
		&KeyModel{},
		&CertificateModel{},
		&CertRequestModel{},
		&OcspResponseModel{},
	}
}
