package registry

import (
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
)

// Contract method names.
const (
	MethodRegister    = "register"
	MethodSetRecord   = "setRecord"
	MethodGetAllNames = "getAllNames"
	MethodRecords     = "records"
	MethodDomains     = "domains"
)

// RegistryMetaData holds the subset of the name registry ABI this client uses.
var RegistryMetaData = &bind.MetaData{
	ABI: `[
	{"type":"function","name":"register","stateMutability":"payable",
	 "inputs":[{"name":"name","type":"string"}],"outputs":[]},
	{"type":"function","name":"setRecord","stateMutability":"nonpayable",
	 "inputs":[{"name":"name","type":"string"},{"name":"record","type":"string"}],"outputs":[]},
	{"type":"function","name":"getAllNames","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"string[]"}]},
	{"type":"function","name":"records","stateMutability":"view",
	 "inputs":[{"name":"","type":"string"}],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"domains","stateMutability":"view",
	 "inputs":[{"name":"","type":"string"}],"outputs":[{"name":"","type":"address"}]}
]`,
}
