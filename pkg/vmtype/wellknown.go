package vmtype

// Addresses of the two predeployed packages every chain ships with: the
// language standard library and the object framework. Stable across upgrades
// because both packages keep their runtime identity.
var (
	StdAddress       = Address{31: 0x01}
	FrameworkAddress = Address{31: 0x02}
)

// InitFunctionName is the module initializer run at publish time, by naming
// convention.
const InitFunctionName Identifier = "init"

// Well-known datatypes of the standard library.
const (
	OptionModuleName Identifier = "option"
	OptionStructName Identifier = "Option"

	AsciiModuleName Identifier = "ascii"
	AsciiStructName Identifier = "String"

	UTF8ModuleName Identifier = "string"
	UTF8StructName Identifier = "String"
)

// Well-known datatypes and modules of the object framework.
const (
	IDModuleName Identifier = "object"
	IDStructName Identifier = "ID"

	CoinModuleName Identifier = "coin"
	CoinStructName Identifier = "Coin"

	TxContextModuleName Identifier = "tx_context"
	TxContextStructName Identifier = "TxContext"

	TransferModuleName   Identifier = "transfer"
	ReceivingStructName  Identifier = "Receiving"
	EventModuleName      Identifier = "event"
	PackageModuleName    Identifier = "package"
	UpgradeCapStructName Identifier = "UpgradeCap"
	UpgradeTicketName    Identifier = "UpgradeTicket"
	UpgradeReceiptName   Identifier = "UpgradeReceipt"
)

// PrivateTransferFunctions are the transfer-module entry points that may only
// be reached through their public_ wrappers from a transaction.
var PrivateTransferFunctions = []Identifier{
	"transfer",
	"freeze_object",
	"share_object",
	"receive",
}

func (s *StructTag) isFramework(module Identifier, name Identifier) bool {
	return s.Address == FrameworkAddress && s.Module == module && s.Name == name
}

func (s *StructTag) isStd(module Identifier, name Identifier) bool {
	return s.Address == StdAddress && s.Module == module && s.Name == name
}

// IsOption reports whether the tag is std::option::Option with one type
// parameter and returns it.
func (s *StructTag) IsOption() (TypeTag, bool) {
	if !s.isStd(OptionModuleName, OptionStructName) || len(s.TypeParams) != 1 {
		return TypeTag{}, false
	}

	return s.TypeParams[0], true
}

func (s *StructTag) IsAsciiString() bool {
	return s.isStd(AsciiModuleName, AsciiStructName) && len(s.TypeParams) == 0
}

func (s *StructTag) IsUTF8String() bool {
	return s.isStd(UTF8ModuleName, UTF8StructName) && len(s.TypeParams) == 0
}

func (s *StructTag) IsID() bool {
	return s.isFramework(IDModuleName, IDStructName) && len(s.TypeParams) == 0
}

// IsCoin reports whether the tag is the framework coin type and returns its
// currency type parameter.
func (s *StructTag) IsCoin() (TypeTag, bool) {
	if !s.isFramework(CoinModuleName, CoinStructName) || len(s.TypeParams) != 1 {
		return TypeTag{}, false
	}

	return s.TypeParams[0], true
}

func (s *StructTag) IsTxContext() bool {
	return s.isFramework(TxContextModuleName, TxContextStructName) && len(s.TypeParams) == 0
}

// IsReceiving reports whether the tag is the receiving-object wrapper and
// returns the received type parameter.
func (s *StructTag) IsReceiving() (TypeTag, bool) {
	if !s.isFramework(TransferModuleName, ReceivingStructName) || len(s.TypeParams) != 1 {
		return TypeTag{}, false
	}

	return s.TypeParams[0], true
}

func UpgradeCapTag() TypeTag {
	return NewStructTag(FrameworkAddress, PackageModuleName, UpgradeCapStructName)
}

func UpgradeTicketTag() TypeTag {
	return NewStructTag(FrameworkAddress, PackageModuleName, UpgradeTicketName)
}

func UpgradeReceiptTag() TypeTag {
	return NewStructTag(FrameworkAddress, PackageModuleName, UpgradeReceiptName)
}
