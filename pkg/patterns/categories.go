package patterns

// Category groups indicator patterns by the kind of artifact they detect.
type Category string

const (
	// CategoryLink matches external links of any shape.
	CategoryLink Category = "link"

	// CategoryIPHost matches raw dotted-quad hosts, checked against
	// already-detected links.
	CategoryIPHost Category = "ip_host"

	// CategoryCryptoWallet matches cryptocurrency wallet addresses.
	CategoryCryptoWallet Category = "crypto_wallet"

	// CategoryCardNumber matches payment card number shapes.
	CategoryCardNumber Category = "card_number"

	// CategoryNationalID matches national identity number shapes.
	CategoryNationalID Category = "national_id"

	// CategoryIBAN matches international bank account numbers.
	CategoryIBAN Category = "iban"
)
