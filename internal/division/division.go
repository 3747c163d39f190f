// Package division resolves Vietnamese administrative division codes to
// display names. The table is static; the draft builder is its only caller
// and only ever reads.
package division

type entry struct {
	name   string
	parent string
}

// Lookup answers code -> name queries for provinces, districts and wards.
type Lookup struct {
	provinces map[string]string
	districts map[string]entry
	wards     map[string]entry
}

// NewLookup builds the static table. Codes follow the national
// administrative division numbering.
func NewLookup() *Lookup {
	return &Lookup{
		provinces: map[string]string{
			"01": "Hà Nội",
			"48": "Đà Nẵng",
			"79": "Hồ Chí Minh",
		},
		districts: map[string]entry{
			"001": {name: "Quận Ba Đình", parent: "01"},
			"002": {name: "Quận Hoàn Kiếm", parent: "01"},
			"005": {name: "Quận Cầu Giấy", parent: "01"},
			"490": {name: "Quận Hải Châu", parent: "48"},
			"492": {name: "Quận Thanh Khê", parent: "48"},
			"760": {name: "Quận 1", parent: "79"},
			"764": {name: "Quận Gò Vấp", parent: "79"},
			"769": {name: "Thành phố Thủ Đức", parent: "79"},
			"774": {name: "Quận 5", parent: "79"},
		},
		wards: map[string]entry{
			"00001": {name: "Phường Phúc Xá", parent: "001"},
			"00073": {name: "Phường Hàng Bạc", parent: "002"},
			"00166": {name: "Phường Dịch Vọng", parent: "005"},
			"20227": {name: "Phường Thạch Thang", parent: "490"},
			"20203": {name: "Phường Xuân Hà", parent: "492"},
			"26734": {name: "Phường Bến Nghé", parent: "760"},
			"26740": {name: "Phường Bến Thành", parent: "760"},
			"26800": {name: "Phường 1", parent: "764"},
			"26819": {name: "Phường Linh Trung", parent: "769"},
			"27259": {name: "Phường 4", parent: "774"},
		},
	}
}

func (l *Lookup) ProvinceName(code string) (string, bool) {
	name, ok := l.provinces[code]
	return name, ok
}

func (l *Lookup) DistrictName(code string) (string, bool) {
	d, ok := l.districts[code]
	if !ok {
		return "", false
	}
	return d.name, true
}

func (l *Lookup) WardName(code string) (string, bool) {
	w, ok := l.wards[code]
	if !ok {
		return "", false
	}
	return w.name, true
}
