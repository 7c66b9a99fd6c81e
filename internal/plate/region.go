package plate

import (
	"sort"
	"strings"
)

// RegionNotFound is returned for codes missing from the table. It is a normal
// outcome, not an error.
const RegionNotFound = "Region not found"

type RegionKind int

const (
	RegionSingle RegionKind = iota + 1
	RegionMultiple
)

func (k RegionKind) String() string {
	switch k {
	case RegionSingle:
		return "single"
	case RegionMultiple:
		return "multiple"
	default:
		return "unknown"
	}
}

// Region is the value side of the region table: either one place name or an
// ordered list of names. Build it with Single or Multiple.
type Region struct {
	Kind  RegionKind
	Names []string
}

func Single(name string) Region {
	return Region{Kind: RegionSingle, Names: []string{name}}
}

func Multiple(names ...string) Region {
	return Region{Kind: RegionMultiple, Names: append([]string(nil), names...)}
}

// Display joins the names in table order.
func (r Region) Display() string {
	if r.Kind == RegionSingle && len(r.Names) > 0 {
		return r.Names[0]
	}
	return strings.Join(r.Names, ", ")
}

// RegionTable maps a region code to its region. It is never written to after
// construction, so concurrent reads need no locking.
type RegionTable map[string]Region

// Lookup is case-sensitive: codes are expected to be normalized already.
func (t RegionTable) Lookup(code string) (Region, bool) {
	r, ok := t[code]
	return r, ok
}

func (t RegionTable) Resolve(code string) string {
	r, ok := t[code]
	if !ok {
		return RegionNotFound
	}
	return r.Display()
}

// Codes returns the table keys sorted alphabetically.
func (t RegionTable) Codes() []string {
	codes := make([]string, 0, len(t))
	for code := range t {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

var defaultRegions = RegionTable{
	// Sumatera
	"BL": Single("Aceh"),
	"BB": Multiple("Tapanuli", "Sibolga", "Padang Sidempuan"),
	"BK": Multiple("Medan", "Deli Serdang", "Binjai", "Langkat"),
	"BA": Single("Sumatera Barat"),
	"BM": Single("Riau"),
	"BP": Single("Kepulauan Riau"),
	"BH": Single("Jambi"),
	"BD": Single("Bengkulu"),
	"BG": Single("Sumatera Selatan"),
	"BN": Single("Kepulauan Bangka Belitung"),
	"BE": Single("Lampung"),

	// Jawa
	"A":  Multiple("Serang", "Cilegon", "Pandeglang", "Lebak"),
	"B":  Multiple("DKI Jakarta", "Bekasi", "Depok", "Tangerang"),
	"D":  Multiple("Bandung", "Bandung Barat", "Cimahi"),
	"E":  Multiple("Cirebon", "Indramayu", "Majalengka", "Kuningan"),
	"F":  Multiple("Bogor", "Sukabumi", "Cianjur"),
	"T":  Multiple("Purwakarta", "Karawang", "Subang"),
	"Z":  Multiple("Sumedang", "Garut", "Tasikmalaya", "Ciamis", "Banjar", "Pangandaran"),
	"G":  Multiple("Pekalongan", "Pemalang", "Batang", "Tegal", "Brebes"),
	"H":  Multiple("Semarang", "Salatiga", "Kendal", "Demak"),
	"K":  Multiple("Pati", "Kudus", "Jepara", "Rembang", "Blora", "Grobogan"),
	"R":  Multiple("Banyumas", "Cilacap", "Purbalingga", "Banjarnegara"),
	"AA": Multiple("Magelang", "Purworejo", "Kebumen", "Temanggung", "Wonosobo"),
	"AD": Multiple("Surakarta", "Sukoharjo", "Boyolali", "Sragen", "Karanganyar", "Wonogiri", "Klaten"),
	"AB": Single("DI Yogyakarta"),
	"L":  Single("Surabaya"),
	"W":  Multiple("Gresik", "Sidoarjo"),
	"M":  Single("Madura"),
	"N":  Multiple("Malang", "Pasuruan", "Probolinggo", "Batu", "Lumajang"),
	"P":  Multiple("Bondowoso", "Situbondo", "Jember", "Banyuwangi"),
	"S":  Multiple("Bojonegoro", "Tuban", "Lamongan", "Jombang", "Mojokerto"),
	"AE": Multiple("Madiun", "Ngawi", "Magetan", "Ponorogo", "Pacitan"),
	"AG": Multiple("Kediri", "Blitar", "Tulungagung", "Nganjuk", "Trenggalek"),

	// Bali dan Nusa Tenggara
	"DK": Single("Bali"),
	"DR": Single("Lombok"),
	"EA": Single("Sumbawa"),
	"DH": Single("Timor"),
	"EB": Single("Flores"),
	"ED": Single("Sumba"),

	// Kalimantan
	"KB": Single("Kalimantan Barat"),
	"DA": Single("Kalimantan Selatan"),
	"KH": Single("Kalimantan Tengah"),
	"KT": Single("Kalimantan Timur"),
	"KU": Single("Kalimantan Utara"),

	// Sulawesi
	"DB": Multiple("Manado", "Bolaang Mongondow", "Minahasa"),
	"DL": Multiple("Sangihe", "Talaud", "Sitaro"),
	"DM": Single("Gorontalo"),
	"DN": Single("Sulawesi Tengah"),
	"DT": Single("Sulawesi Tenggara"),
	"DD": Single("Sulawesi Selatan"),
	"DC": Single("Sulawesi Barat"),

	// Maluku dan Papua
	"DE": Single("Maluku"),
	"DG": Single("Maluku Utara"),
	"PA": Single("Papua"),
	"PB": Single("Papua Barat"),
}

// DefaultRegions returns the built-in Indonesian region table. The returned
// map is shared and must not be modified.
func DefaultRegions() RegionTable {
	return defaultRegions
}

// ResolveRegion resolves a code against the built-in table.
func ResolveRegion(code string) string {
	return defaultRegions.Resolve(code)
}
