package recipe

// DocumentPatch carries merge-patch semantics for Repository.Update:
// only non-nil fields are applied to the stored document.
type DocumentPatch struct {
	Languages map[Language]*LocalizedRecipe
	Images    *[]string
	Version   *ContentVersion
}

// Apply merges the patch into the document. Languages merge per key;
// Images and Version replace wholesale when set. CreatedAt is never
// touched.
func (p DocumentPatch) Apply(d *Document) {
	if p.Languages != nil {
		if d.Languages == nil {
			d.Languages = make(map[Language]*LocalizedRecipe, len(p.Languages))
		}
		for lang, r := range p.Languages {
			d.Languages[lang] = r
		}
	}
	if p.Images != nil {
		d.Images = *p.Images
	}
	if p.Version != nil {
		d.Version = *p.Version
	}
}
